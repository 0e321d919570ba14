/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan 11 08:42:39 2018 mstenber
 * Last modified: Tue Feb 12 16:40:18 2019 mstenber
 * Edit time:     88 min
 *
 */

package file

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/storage"
)

// fileBackend stores the blocks in file directory hierarchy.
//
// - state file contains the state record
//
// - blocks/ directory contains block records, with hex dumped block
// ids as names. The first directoryChars of the name are used as
// subdirectory, as keeping all blocks in same location does not make
// sense.
//
// Files are written to a temporary name and then renamed, so a block
// is never seen half-written.

const directoryChars = 2 // 256 subdirs should be plenty

type fileBackend struct {
	dir     string
	created map[string]bool
}

var _ storage.Backend = &fileBackend{}

func NewFileBackend() storage.Backend {
	return &fileBackend{}
}

func (self *fileBackend) Init(config storage.BackendConfiguration) error {
	self.dir = config.Directory
	self.created = make(map[string]bool)
	return self.mkdirAll(self.dir)
}

func (self *fileBackend) mkdirAll(path string) error {
	if self.created[path] {
		return nil
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return err
	}
	self.created[path] = true
	return nil
}

func (self *fileBackend) blockPath(id hdd.BlockId) (dir string, full string) {
	name := fmt.Sprintf("%08x", uint32(id))
	dir = filepath.Join(self.dir, "blocks", name[:directoryChars])
	full = filepath.Join(dir, name[directoryChars:])
	return
}

func (self *fileBackend) statePath() string {
	return filepath.Join(self.dir, "state")
}

func (self *fileBackend) writeFile(dir, path string, data []byte) error {
	if err := self.mkdirAll(dir); err != nil {
		return err
	}
	tmp := path + ".new"
	if err := ioutil.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (self *fileBackend) Close() error {
	return nil
}

func (self *fileBackend) Clear() error {
	mlog.Printf2("storage/file/file", "fbb.Clear")
	self.created = make(map[string]bool)
	return os.RemoveAll(filepath.Join(self.dir, "blocks"))
}

func (self *fileBackend) DeleteBlock(id hdd.BlockId) error {
	_, path := self.blockPath(id)
	mlog.Printf2("storage/file/file", "fbb.DeleteBlock %v: %v", id, path)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return storage.ErrNotFound
	}
	return err
}

func (self *fileBackend) Flush() error {
	return nil
}

func (self *fileBackend) GetBlock(id hdd.BlockId) ([]byte, error) {
	_, path := self.blockPath(id)
	b, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		mlog.Printf2("storage/file/file", "fbb.GetBlock %v: nope", id)
		return nil, storage.ErrNotFound
	}
	return b, err
}

func (self *fileBackend) GetState() ([]byte, error) {
	b, err := ioutil.ReadFile(self.statePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	return b, err
}

func (self *fileBackend) SetBlock(id hdd.BlockId, data []byte) error {
	dir, path := self.blockPath(id)
	mlog.Printf2("storage/file/file", "fbb.SetBlock %v to %v", id, path)
	return self.writeFile(dir, path, data)
}

func (self *fileBackend) SetState(data []byte) error {
	return self.writeFile(self.dir, self.statePath(), data)
}
