/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 10:01:40 2019 mstenber
 * Last modified: Wed Feb 13 12:05:11 2019 mstenber
 * Edit time:     9 min
 *
 */

package fileio

import (
	"strings"
	"testing"

	"github.com/fingon/go-hddfs/hdd"
	"github.com/stvp/assert"
)

func TestTableRoundTrip(t *testing.T) {
	t.Parallel()
	table := make([]Descriptor, 4)
	table[0] = Descriptor{Name: "a.txt", Cursor: 3, BlockId: 7, Size: 5, Open: true}
	table[2] = Descriptor{Name: strings.Repeat("x", MaxNameLength),
		BlockId: 0xfffffffe, Size: hdd.MaxBlockSize}
	b := encodeTable(table)
	assert.Equal(t, len(b), 4*RecordSize)
	assert.Equal(t, b[NameSize:RecordSize],
		[]byte{0, 0, 0, 3, 0, 0, 0, 7, 0, 0, 0, 5, 0, 0, 0, 1})
	table2, err := decodeTable(b)
	assert.Nil(t, err)
	assert.Equal(t, table2, table)
	assert.True(t, table2[1].IsFree())
	assert.False(t, table2[2].IsFree())
}

func TestTableCorrupt(t *testing.T) {
	t.Parallel()
	add := func(name string, d Descriptor) {
		t.Run(name, func(t *testing.T) {
			_, err := decodeTable(encodeTable([]Descriptor{d}))
			assert.Equal(t, err, ErrBadTable)
		})
	}
	add("cursor", Descriptor{Name: "a", BlockId: 2, Size: 1, Cursor: 2})
	add("size", Descriptor{Name: "a", BlockId: 2, Size: hdd.MaxBlockSize + 1})
	add("noblock", Descriptor{Name: "a", Size: 1})
	add("nosize", Descriptor{Name: "a", BlockId: 1})

	b := encodeTable(make([]Descriptor, 1))
	b[RecordSize-1] = 2
	_, err := decodeTable(b)
	assert.Equal(t, err, ErrBadTable)

	_, err = decodeTable(b[1:])
	assert.Equal(t, err, ErrBadTable)
}
