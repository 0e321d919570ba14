/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 13:14:11 2019 mstenber
 * Last modified: Thu Feb 14 10:22:23 2019 mstenber
 * Edit time:     21 min
 *
 */

package storage

import (
	"errors"

	"github.com/fingon/go-hddfs/codec"
	"github.com/fingon/go-hddfs/hdd"
)

var ErrNotFound = errors.New("block not found")

type BackendConfiguration struct {
	// Directory is where on-disk backends keep their data.
	Directory string

	// CacheSize is the number of decoded blocks Storage keeps in
	// memory; 0 disables the cache.
	CacheSize int

	// Codec is applied by Storage to block contents at rest.
	Codec codec.Codec
}

// Backend is the shadow behind the throne; it actually handles the
// low-level operations of blocks. It deals only with opaque records
// keyed by block id, plus one opaque state record; what is in them is
// Storage's business.
type Backend interface {
	Init(config BackendConfiguration) error

	// Close the backend
	Close() error

	// GetBlock returns the record of the block, or ErrNotFound.
	GetBlock(id hdd.BlockId) ([]byte, error)

	// SetBlock stores the record of the block, replacing any
	// earlier one.
	SetBlock(id hdd.BlockId, data []byte) error

	// DeleteBlock removes the block; it MUST exist (ErrNotFound
	// otherwise).
	DeleteBlock(id hdd.BlockId) error

	// Clear removes every block (state is kept).
	Clear() error

	// GetState returns the state record, or nil if none is set.
	GetState() ([]byte, error)

	SetState(data []byte) error

	// Flush makes sure what has been set so far survives Close.
	Flush() error
}

// blockRecord is what Storage keeps in the backend for every block.
// Data has gone through the codec; Size is the size before that.
type blockRecord struct {
	_struct struct{} `codec:",toarray"`
	Size    uint32
	Meta    bool
	Data    []byte
}

// storageState is the persistent part of Storage state.
type storageState struct {
	_struct struct{} `codec:",toarray"`
	NextId  hdd.BlockId
	MetaId  hdd.BlockId
}
