/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 09:20:12 2019 mstenber
 * Last modified: Thu Feb 14 15:33:40 2019 mstenber
 * Edit time:     4 min
 *
 */

package util

import (
	"testing"

	"github.com/stvp/assert"
)

func TestUint32Key(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Uint32Key(nil, 0x01020304), []byte{1, 2, 3, 4})
	assert.Equal(t, Uint32Key([]byte("b"), 5), []byte{'b', 0, 0, 0, 5})
	// Ordering follows values
	assert.True(t, string(Uint32Key(nil, 255)) < string(Uint32Key(nil, 256)))
}

func TestIMin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, IMin(3, 1), 1)
	assert.Equal(t, IMin(3, 5), 3)
}

func TestNewRng(t *testing.T) {
	t.Parallel()
	r1 := NewRng(42)
	r2 := NewRng(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, r1.Int63(), r2.Int63())
	}
}
