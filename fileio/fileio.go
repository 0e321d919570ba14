/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 08:40:31 2019 mstenber
 * Last modified: Thu Feb 14 09:51:12 2019 mstenber
 * Edit time:     162 min
 *
 */

// fileio package provides named files on top of the blocks of the
// block storage service.
//
// Every file is backed by (at most) a single block that holds the
// whole file; writes that grow the file move it to a new, larger
// block. The file table has fixed number of slots and it lives in
// the meta block: it is created by Format, loaded by Mount and
// written back by Unmount.
//
// Session is the explicit state of one mounted device: the
// connection, the file table, and the cursors of the open files.
package fileio

import (
	"fmt"
	"strings"

	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/transport"
	"github.com/fingon/go-hddfs/util"
)

const DefaultCapacity = 1024

type Configuration struct {
	// Capacity is the number of slots in the file table; 0 means
	// DefaultCapacity. Whole table has to fit in one block.
	Capacity int
}

// Handle identifies an open file; it is the index of the file's slot
// in the file table.
type Handle int

type Session struct {
	Configuration

	client *transport.Client
	lock   util.MutexLocked

	// table is nil when not mounted
	table  []Descriptor
	metaId hdd.BlockId
}

func NewSession(client *transport.Client, config Configuration) (*Session, error) {
	if config.Capacity == 0 {
		config.Capacity = DefaultCapacity
	}
	if config.Capacity < 0 || config.Capacity*RecordSize > hdd.MaxBlockSize {
		return nil, fmt.Errorf("file table capacity %d does not fit in a block", config.Capacity)
	}
	return &Session{Configuration: config, client: client,
		metaId: hdd.MetaBlockId}, nil
}

func (self *Session) tableSize() uint32 {
	return uint32(self.Capacity * RecordSize)
}

func (self *Session) execute(op string, cmd hdd.Command, buf []byte) (hdd.Response, error) {
	resp, err := self.client.Execute(cmd, buf)
	if err != nil {
		return resp, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Failed {
		mlog.Printf2("fileio/fileio", " %s failed: %v", op, resp)
		return resp, &ProtocolError{Op: op, Command: cmd, Response: resp}
	}
	return resp, nil
}

// ensureInit connects to the service unless already connected.
func (self *Session) ensureInit(op string) error {
	if self.client.IsConnected() {
		return nil
	}
	_, err := self.execute(op, hdd.Command{Op: hdd.OpDevice, Flag: hdd.FlagInit}, nil)
	if err != nil && self.client.IsConnected() {
		// Device refused Init; next operation starts over
		self.client.Close()
	}
	return err
}

// IsMounted is true between Format/Mount and Unmount.
func (self *Session) IsMounted() bool {
	defer self.lock.Locked()()
	return self.table != nil
}

// Table returns copy of the current file table (nil if not mounted).
func (self *Session) Table() []Descriptor {
	defer self.lock.Locked()()
	if self.table == nil {
		return nil
	}
	return append([]Descriptor(nil), self.table...)
}

// Format wipes the device, and writes an empty file table to a new
// meta block. The session is mounted afterwards.
func (self *Session) Format() error {
	defer self.lock.Locked()()
	const op = "format"
	mlog.Printf2("fileio/fileio", "s.Format")
	if err := self.ensureInit(op); err != nil {
		return err
	}
	_, err := self.execute(op, hdd.Command{Op: hdd.OpDevice, Flag: hdd.FlagFormat}, nil)
	if err != nil {
		return err
	}
	table := make([]Descriptor, self.Capacity)
	b := encodeTable(table)
	resp, err := self.execute(op, hdd.Command{Op: hdd.OpCreateBlock,
		Flag: hdd.FlagMetaBlock, BlockSize: uint32(len(b))}, b)
	if err != nil {
		return err
	}
	if resp.BlockId != hdd.MetaBlockId {
		mlog.Printf2("fileio/fileio", " unexpected meta block id %v", resp.BlockId)
	}
	self.metaId = resp.BlockId
	self.table = table
	return nil
}

// Mount loads the file table from the meta block.
func (self *Session) Mount() error {
	defer self.lock.Locked()()
	const op = "mount"
	mlog.Printf2("fileio/fileio", "s.Mount")
	if err := self.ensureInit(op); err != nil {
		return err
	}
	size := self.tableSize()
	b := make([]byte, size)
	resp, err := self.execute(op, hdd.Command{Op: hdd.OpReadBlock,
		Flag: hdd.FlagMetaBlock, BlockId: self.metaId, BlockSize: size}, b)
	if err != nil {
		return err
	}
	if resp.BlockSize != size {
		return &ValidationError{Op: op, Err: ErrBadTable}
	}
	table, err := decodeTable(b)
	if err != nil {
		return &ValidationError{Op: op, Err: err}
	}
	self.table = table
	return nil
}

// Unmount closes every file, writes the file table back to the meta
// block, and closes the connection.
func (self *Session) Unmount() error {
	defer self.lock.Locked()()
	const op = "unmount"
	mlog.Printf2("fileio/fileio", "s.Unmount")
	if self.table == nil {
		return &ValidationError{Op: op, Err: ErrNotMounted}
	}
	table := append([]Descriptor(nil), self.table...)
	for i := range table {
		table[i].Open = false
		table[i].Cursor = 0
	}
	b := encodeTable(table)
	_, err := self.execute(op, hdd.Command{Op: hdd.OpOverwriteBlock,
		Flag: hdd.FlagMetaBlock, BlockId: self.metaId,
		BlockSize: uint32(len(b))}, b)
	if err != nil {
		return err
	}
	_, err = self.execute(op, hdd.Command{Op: hdd.OpDevice, Flag: hdd.FlagSaveAndClose}, nil)
	if err != nil {
		return err
	}
	self.table = nil
	return nil
}

func (self *Session) descriptor(op string, h Handle) (*Descriptor, error) {
	if self.table == nil {
		return nil, &ValidationError{Op: op, Err: ErrNotMounted}
	}
	if h < 0 || int(h) >= len(self.table) || self.table[h].IsFree() {
		return nil, &ValidationError{Op: op, Err: ErrBadHandle}
	}
	d := &self.table[h]
	if !d.Open {
		return nil, &ValidationError{Op: op, Err: ErrNotOpen}
	}
	return d, nil
}

// Open opens the named file, creating it if it does not exist yet.
// Only one handle per name can be open at a time.
func (self *Session) Open(name string) (Handle, error) {
	defer self.lock.Locked()()
	const op = "open"
	mlog.Printf2("fileio/fileio", "s.Open %s", name)
	if name == "" || len(name) > MaxNameLength || strings.IndexByte(name, 0) >= 0 {
		return -1, &ValidationError{Op: op, Err: ErrBadName}
	}
	if self.table == nil {
		return -1, &ValidationError{Op: op, Err: ErrNotMounted}
	}
	if err := self.ensureInit(op); err != nil {
		return -1, err
	}
	free := -1
	for i := range self.table {
		d := &self.table[i]
		if d.IsFree() {
			if free < 0 {
				free = i
			}
			continue
		}
		if d.Name != name {
			continue
		}
		if d.Open {
			return -1, &ValidationError{Op: op, Err: ErrAlreadyOpen}
		}
		d.Open = true
		d.Cursor = 0
		mlog.Printf2("fileio/fileio", " existing %d: %v", i, d)
		return Handle(i), nil
	}
	if free < 0 {
		return -1, &ValidationError{Op: op, Err: ErrTableFull}
	}
	self.table[free] = Descriptor{Name: name, Open: true}
	mlog.Printf2("fileio/fileio", " new %d", free)
	return Handle(free), nil
}

// Close closes the handle. The data stays, and is there when the same
// name is opened again.
func (self *Session) Close(h Handle) error {
	defer self.lock.Locked()()
	mlog.Printf2("fileio/fileio", "s.Close %d", h)
	d, err := self.descriptor("close", h)
	if err != nil {
		return err
	}
	d.Open = false
	d.Cursor = 0
	return nil
}

// Stat returns copy of the descriptor of an open file.
func (self *Session) Stat(h Handle) (Descriptor, error) {
	defer self.lock.Locked()()
	d, err := self.descriptor("stat", h)
	if err != nil {
		return Descriptor{}, err
	}
	return *d, nil
}

func (self *Session) readBlock(op string, d *Descriptor) ([]byte, error) {
	b := make([]byte, d.Size)
	cmd := hdd.Command{Op: hdd.OpReadBlock, BlockId: d.BlockId, BlockSize: d.Size}
	resp, err := self.execute(op, cmd, b)
	if err != nil {
		return nil, err
	}
	if resp.BlockSize != d.Size {
		return nil, &ProtocolError{Op: op, Command: cmd, Response: resp}
	}
	return b, nil
}

// Read reads up to len(buf) bytes at the cursor, and advances the
// cursor by what was read. At the end of file the result is 0.
func (self *Session) Read(h Handle, buf []byte) (int, error) {
	defer self.lock.Locked()()
	const op = "read"
	mlog.Printf2("fileio/fileio", "s.Read %d %d", h, len(buf))
	d, err := self.descriptor(op, h)
	if err != nil {
		return 0, err
	}
	if err = self.ensureInit(op); err != nil {
		return 0, err
	}
	if d.BlockId == hdd.NoBlock {
		return 0, nil
	}
	b, err := self.readBlock(op, d)
	if err != nil {
		return 0, err
	}
	n := copy(buf, b[d.Cursor:])
	d.Cursor += uint32(n)
	return n, nil
}

// Write writes data at the cursor, and advances the cursor past it.
// The file grows if need be. Either all of data is written, or
// nothing (as far as the file table is concerned).
func (self *Session) Write(h Handle, data []byte) (int, error) {
	defer self.lock.Locked()()
	const op = "write"
	mlog.Printf2("fileio/fileio", "s.Write %d %d", h, len(data))
	d, err := self.descriptor(op, h)
	if err != nil {
		return 0, err
	}
	if err = self.ensureInit(op); err != nil {
		return 0, err
	}
	count := uint32(len(data))
	if count == 0 {
		return 0, nil
	}
	end := uint64(d.Cursor) + uint64(len(data))
	if end > hdd.MaxBlockSize {
		return 0, &ValidationError{Op: op, Err: ErrFileTooLarge}
	}
	switch {
	case d.BlockId == hdd.NoBlock:
		resp, err := self.execute(op, hdd.Command{Op: hdd.OpCreateBlock,
			BlockSize: count}, data)
		if err != nil {
			return 0, err
		}
		d.BlockId = resp.BlockId
		d.Size = count
		d.Cursor = count
	case end > uint64(d.Size):
		old, err := self.readBlock(op, d)
		if err != nil {
			return 0, err
		}
		b := make([]byte, end)
		copy(b, old)
		copy(b[d.Cursor:], data)
		resp, err := self.execute(op, hdd.Command{Op: hdd.OpCreateBlock,
			BlockSize: uint32(end)}, b)
		if err != nil {
			return 0, err
		}
		_, err = self.execute(op, hdd.Command{Op: hdd.OpDeleteBlock,
			BlockId: d.BlockId}, nil)
		if err != nil {
			mlog.Printf2("fileio/fileio", " leaked block %v", resp.BlockId)
			return 0, err
		}
		mlog.Printf2("fileio/fileio", " moved %v -> %v", d.BlockId, resp.BlockId)
		d.BlockId = resp.BlockId
		d.Size = uint32(end)
		d.Cursor = uint32(end)
	default:
		b, err := self.readBlock(op, d)
		if err != nil {
			return 0, err
		}
		copy(b[d.Cursor:], data)
		_, err = self.execute(op, hdd.Command{Op: hdd.OpOverwriteBlock,
			BlockId: d.BlockId, BlockSize: d.Size}, b)
		if err != nil {
			return 0, err
		}
		d.Cursor += count
	}
	return len(data), nil
}

// Seek moves the cursor; position past the end of file is an error.
func (self *Session) Seek(h Handle, position uint32) error {
	defer self.lock.Locked()()
	const op = "seek"
	mlog.Printf2("fileio/fileio", "s.Seek %d %d", h, position)
	d, err := self.descriptor(op, h)
	if err != nil {
		return err
	}
	if err = self.ensureInit(op); err != nil {
		return err
	}
	if position > d.Size {
		return &ValidationError{Op: op, Err: ErrSeekPastEnd}
	}
	d.Cursor = position
	return nil
}
