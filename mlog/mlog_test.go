/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 10:22:50 2019 mstenber
 * Last modified: Fri Feb 15 09:59:31 2019 mstenber
 * Edit time:     12 min
 *
 */

package mlog

import (
	"bytes"
	"log"
	"testing"

	"github.com/stvp/assert"
)

func withoutGids() func() {
	old := DumpGoroutineIds
	DumpGoroutineIds = false
	return func() {
		DumpGoroutineIds = old
	}
}

func TestMlog(t *testing.T) {
	defer withoutGids()()
	add := func(pattern string, outputted bool) {
		t.Run(pattern, func(t *testing.T) {
			var b bytes.Buffer
			defer SetLogger(log.New(&b, "", 0))()
			defer SetPattern(pattern)()
			Printf("foo %s", "bar")
			assert.Equal(t, b.Len() > 0, outputted)
			if outputted {
				assert.Equal(t, b.String(), "foo bar\n")
			}
			assert.Equal(t, IsEnabled(), pattern != "")
		})
	}
	add("", false)
	add("zzzglorb", false)
	add("mlog_test", true)
}

func TestMlogPrintf2(t *testing.T) {
	defer withoutGids()()
	var b bytes.Buffer
	defer SetLogger(log.New(&b, "", 0))()
	defer SetPattern("^transport/")()
	Printf2("fileio/fileio", "no")
	Printf2("transport/transport", "yes %d", 1)
	assert.Equal(t, b.String(), "yes 1\n")
}

func TestMlogRecursion(t *testing.T) {
	defer withoutGids()()
	var b bytes.Buffer
	Reset()
	defer SetLogger(log.New(&b, "", 0))()
	defer SetPattern(".")()
	Printf("d0")
	func() {
		Printf("d1")
		func() {
			Printf("d2")
		}()
		Printf("D1")
	}()
	Printf("D0")
	assert.Equal(t, b.String(), "d0\n.d1\n..d2\n.D1\nD0\n")
}

func BenchmarkMlogDisabled(b *testing.B) {
	defer SetPattern("")()
	for i := 0; i < b.N; i++ {
		Printf2("x", "y %d", 42)
	}
}

func BenchmarkMlogNotMatching(b *testing.B) {
	defer SetPattern("zzglorb")()
	for i := 0; i < b.N; i++ {
		Printf2("x", "y %d", 42)
	}
}
