/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 13:30:02 2019 mstenber
 * Last modified: Thu Feb 14 11:05:47 2019 mstenber
 * Edit time:     73 min
 *
 */

// storage package keeps the blocks of the block storage service.
//
// Storage hands out block ids (monotonically from 1, so the first
// block after Format is always hdd.MetaBlockId), runs the block
// contents through the configured codec, and keeps the most recently
// used decoded blocks in a LRU cache. Actual persistence is up to the
// Backend (see the subpackages, and factory for constructing them by
// name).
package storage

import (
	"errors"

	"github.com/bluele/gcache"
	"github.com/fingon/go-hddfs/codec"
	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/util"
)

var ErrSizeMismatch = errors.New("block size mismatch")

type Storage struct {
	Backend   Backend
	Codec     codec.Codec
	CacheSize int

	lock  util.MutexLocked
	state storageState
	cache gcache.Cache

	// Statistics
	Reads, Writes, Deletes, BytesRead, BytesWritten, CacheHits util.AtomicInt
}

// Init sets up the default values to be usable, and loads the
// persisted state from the backend.
func (self Storage) Init() (*Storage, error) {
	// No need to special case Codec = nil elsewhere with this
	if self.Codec == nil {
		self.Codec = &codec.CodecChain{}
	}
	if self.CacheSize > 0 {
		self.cache = gcache.New(self.CacheSize).LRU().Build()
	}
	self.state = storageState{NextId: hdd.MetaBlockId}
	b, err := self.Backend.GetState()
	if err != nil {
		return nil, err
	}
	if b != nil {
		if err = codec.Unmarshal(b, &self.state); err != nil {
			return nil, err
		}
	}
	mlog.Printf2("storage/storage", "st.Init next:%v meta:%v",
		self.state.NextId, self.state.MetaId)
	return &self, nil
}

func (self *Storage) saveState() error {
	b, err := codec.Marshal(&self.state)
	if err != nil {
		return err
	}
	return self.Backend.SetState(b)
}

func additionalData(id hdd.BlockId) []byte {
	return util.Uint32Key(nil, uint32(id))
}

func (self *Storage) cacheSet(id hdd.BlockId, data []byte) {
	if self.cache == nil {
		return
	}
	self.cache.Set(id, append([]byte(nil), data...))
}

func (self *Storage) cacheRemove(id hdd.BlockId) {
	if self.cache != nil {
		self.cache.Remove(id)
	}
}

func (self *Storage) getRecord(id hdd.BlockId) (rec blockRecord, err error) {
	b, err := self.Backend.GetBlock(id)
	if err != nil {
		return
	}
	err = codec.Unmarshal(b, &rec)
	return
}

func (self *Storage) setRecord(id hdd.BlockId, data []byte, meta bool) error {
	enc, err := self.Codec.EncodeBytes(data, additionalData(id))
	if err != nil {
		return err
	}
	b, err := codec.Marshal(&blockRecord{Size: uint32(len(data)), Meta: meta, Data: enc})
	if err != nil {
		return err
	}
	if err = self.Backend.SetBlock(id, b); err != nil {
		return err
	}
	self.Writes.Add(1)
	self.BytesWritten.AddInt(len(data))
	self.cacheSet(id, data)
	return nil
}

// MetaBlockId returns the id of the most recently created meta
// block, or hdd.NoBlock if there is none.
func (self *Storage) MetaBlockId() hdd.BlockId {
	defer self.lock.Locked()()
	return self.state.MetaId
}

// Format forgets every block; the next created block gets id 1.
func (self *Storage) Format() error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/storage", "st.Format")
	if err := self.Backend.Clear(); err != nil {
		return err
	}
	if self.cache != nil {
		self.cache.Purge()
	}
	self.state = storageState{NextId: hdd.MetaBlockId}
	return self.saveState()
}

// Create stores data as a new block and returns its id.
func (self *Storage) Create(data []byte, meta bool) (id hdd.BlockId, err error) {
	defer self.lock.Locked()()
	id = self.state.NextId
	if id == hdd.NoBlock {
		id++
	}
	mlog.Printf2("storage/storage", "st.Create %v (%d b) meta:%v", id, len(data), meta)
	if err = self.setRecord(id, data, meta); err != nil {
		return hdd.NoBlock, err
	}
	self.state.NextId = id + 1
	if meta {
		self.state.MetaId = id
	}
	err = self.saveState()
	return
}

// Read returns the (decoded) contents of the block. The result must
// not be modified.
func (self *Storage) Read(id hdd.BlockId) ([]byte, error) {
	defer self.lock.Locked()()
	mlog.Printf2("storage/storage", "st.Read %v", id)
	self.Reads.Add(1)
	if self.cache != nil {
		if v, err := self.cache.Get(id); err == nil {
			data := v.([]byte)
			self.CacheHits.Add(1)
			self.BytesRead.AddInt(len(data))
			return data, nil
		}
	}
	rec, err := self.getRecord(id)
	if err != nil {
		return nil, err
	}
	data, err := self.Codec.DecodeBytes(rec.Data, additionalData(id))
	if err != nil {
		return nil, err
	}
	if len(data) != int(rec.Size) {
		return nil, codec.ErrCorrupt
	}
	self.BytesRead.AddInt(len(data))
	self.cacheSet(id, data)
	return data, nil
}

// Overwrite replaces contents of an existing block. Blocks have
// fixed size; data has to be exactly as long as the current contents.
func (self *Storage) Overwrite(id hdd.BlockId, data []byte) error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/storage", "st.Overwrite %v (%d b)", id, len(data))
	rec, err := self.getRecord(id)
	if err != nil {
		return err
	}
	if int(rec.Size) != len(data) {
		return ErrSizeMismatch
	}
	return self.setRecord(id, data, rec.Meta)
}

func (self *Storage) Delete(id hdd.BlockId) error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/storage", "st.Delete %v", id)
	if err := self.Backend.DeleteBlock(id); err != nil {
		return err
	}
	self.Deletes.Add(1)
	self.cacheRemove(id)
	if id == self.state.MetaId {
		self.state.MetaId = hdd.NoBlock
		return self.saveState()
	}
	return nil
}

func (self *Storage) Flush() error {
	defer self.lock.Locked()()
	if mlog.IsEnabled() {
		mlog.Printf2("storage/storage", "st.Flush")
		mlog.Printf2("storage/storage", " reads: %d (%d cached, %d k)",
			self.Reads.Get(), self.CacheHits.Get(), self.BytesRead.Get()/1024)
		mlog.Printf2("storage/storage", " writes: %d (%d k), deletes: %d",
			self.Writes.Get(), self.BytesWritten.Get()/1024, self.Deletes.Get())
	}
	if err := self.saveState(); err != nil {
		return err
	}
	return self.Backend.Flush()
}

func (self *Storage) Close() error {
	if err := self.Flush(); err != nil {
		return err
	}
	return self.Backend.Close()
}
