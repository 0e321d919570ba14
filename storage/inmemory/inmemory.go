/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 17 22:20:08 2017 mstenber
 * Last modified: Tue Feb 12 14:07:08 2019 mstenber
 * Edit time:     71 min
 *
 */

package inmemory

import (
	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/storage"
	"github.com/fingon/go-hddfs/util"
)

// inMemoryBackend provides In-memory storage; data is always
// assumed to be available and is just stored in maps.
type inMemoryBackend struct {
	id2Data map[hdd.BlockId][]byte
	state   []byte
	lock    util.MutexLocked
}

var _ storage.Backend = &inMemoryBackend{}

func NewInMemoryBackend() storage.Backend {
	self := &inMemoryBackend{}
	self.id2Data = make(map[hdd.BlockId][]byte)
	return self
}

func (self *inMemoryBackend) Init(config storage.BackendConfiguration) error {
	return nil
}

func (self *inMemoryBackend) Close() error {
	return nil
}

func (self *inMemoryBackend) Clear() error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.Clear")
	self.id2Data = make(map[hdd.BlockId][]byte)
	return nil
}

func (self *inMemoryBackend) DeleteBlock(id hdd.BlockId) error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.DeleteBlock %v", id)
	if _, ok := self.id2Data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(self.id2Data, id)
	return nil
}

func (self *inMemoryBackend) Flush() error {
	return nil
}

func (self *inMemoryBackend) GetBlock(id hdd.BlockId) ([]byte, error) {
	defer self.lock.Locked()()
	b, ok := self.id2Data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}

func (self *inMemoryBackend) GetState() ([]byte, error) {
	defer self.lock.Locked()()
	return self.state, nil
}

func (self *inMemoryBackend) SetBlock(id hdd.BlockId, data []byte) error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.SetBlock %v (%d b)", id, len(data))
	self.id2Data[id] = append([]byte(nil), data...)
	return nil
}

func (self *inMemoryBackend) SetState(data []byte) error {
	defer self.lock.Locked()()
	self.state = append([]byte(nil), data...)
	return nil
}
