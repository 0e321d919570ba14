/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 08:55:01 2019 mstenber
 * Last modified: Tue Feb 12 09:11:23 2019 mstenber
 * Edit time:     3 min
 *
 */

package util

import (
	"testing"

	"github.com/stvp/assert"
)

func TestLockedWaitGroup(t *testing.T) {
	t.Parallel()
	var l MutexLocked
	var wg SimpleWaitGroup
	var ai AtomicInt
	j := 0
	for i := 0; i < 10; i++ {
		wg.Go(func() {
			defer l.Locked()()
			j++
			ai.AddInt(2)
		})
	}
	wg.Wait()
	assert.Equal(t, j, 10)
	assert.Equal(t, ai.GetInt(), 20)
}

func TestAtomicInt(t *testing.T) {
	t.Parallel()
	var ai AtomicInt
	assert.Equal(t, ai.GetInt(), 0)
	assert.Equal(t, ai.AddInt(1), 1)
	assert.Equal(t, ai.Get(), int64(1))
	ai.Set(32)
	assert.Equal(t, ai.GetInt(), 32)
}
