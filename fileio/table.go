/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 09:20:13 2019 mstenber
 * Last modified: Wed Feb 13 12:02:58 2019 mstenber
 * Edit time:     28 min
 *
 */

package fileio

import (
	"bytes"
	"encoding/binary"

	"github.com/fingon/go-hddfs/hdd"
)

// Descriptor is one slot of the file table. Slot with empty Name is
// free.
type Descriptor struct {
	Name    string
	Cursor  uint32
	BlockId hdd.BlockId
	Size    uint32
	Open    bool
}

func (self *Descriptor) IsFree() bool {
	return self.Name == ""
}

// On-disk record of a Descriptor, all integers big-endian:
//
//	| Name (NameSize, zero padded) | Cursor (4) | BlockId (4) | Size (4) | Open (4) |
const (
	NameSize      = 128
	MaxNameLength = NameSize - 1
	RecordSize    = NameSize + 4*4
)

func encodeTable(table []Descriptor) []byte {
	b := make([]byte, len(table)*RecordSize)
	for i, d := range table {
		r := b[i*RecordSize : (i+1)*RecordSize]
		copy(r[:NameSize], d.Name)
		r = r[NameSize:]
		binary.BigEndian.PutUint32(r[0:], d.Cursor)
		binary.BigEndian.PutUint32(r[4:], uint32(d.BlockId))
		binary.BigEndian.PutUint32(r[8:], d.Size)
		if d.Open {
			binary.BigEndian.PutUint32(r[12:], 1)
		}
	}
	return b
}

func decodeTable(b []byte) ([]Descriptor, error) {
	if len(b)%RecordSize != 0 {
		return nil, ErrBadTable
	}
	table := make([]Descriptor, len(b)/RecordSize)
	for i := range table {
		r := b[i*RecordSize : (i+1)*RecordSize]
		name := r[:NameSize]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		r = r[NameSize:]
		d := Descriptor{Name: string(name),
			Cursor:  binary.BigEndian.Uint32(r[0:]),
			BlockId: hdd.BlockId(binary.BigEndian.Uint32(r[4:])),
			Size:    binary.BigEndian.Uint32(r[8:])}
		switch binary.BigEndian.Uint32(r[12:]) {
		case 0:
		case 1:
			d.Open = true
		default:
			return nil, ErrBadTable
		}
		if d.Cursor > d.Size || d.Size > hdd.MaxBlockSize {
			return nil, ErrBadTable
		}
		if (d.BlockId == hdd.NoBlock) != (d.Size == 0) {
			return nil, ErrBadTable
		}
		table[i] = d
	}
	return table, nil
}
