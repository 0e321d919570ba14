/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 22:49:15 2018 mstenber
 * Last modified: Tue Feb 12 15:32:34 2019 mstenber
 * Edit time:     52 min
 *
 */

package bolt

import (
	"path/filepath"

	bbolt "github.com/coreos/bbolt"

	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/storage"
	"github.com/fingon/go-hddfs/util"
)

var blockKey = []byte("block")
var stateKey = []byte("state")

// boltBackend provides on-disk storage in a single bbolt database.
//
// - block bucket: big-endian block id -> block record
// - state bucket: "state" -> state record
type boltBackend struct {
	db *bbolt.DB
}

var _ storage.Backend = &boltBackend{}

func NewBoltBackend() storage.Backend {
	return &boltBackend{}
}

func (self *boltBackend) Init(config storage.BackendConfiguration) error {
	db, err := bbolt.Open(filepath.Join(config.Directory, "bbolt.db"), 0600, nil)
	if err != nil {
		return err
	}
	self.db = db
	return db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(blockKey); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(stateKey)
		return err
	})
}

func (self *boltBackend) Close() error {
	return self.db.Close()
}

func (self *boltBackend) Clear() error {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Clear")
	return self.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(blockKey); err != nil {
			return err
		}
		_, err := tx.CreateBucket(blockKey)
		return err
	})
}

func (self *boltBackend) DeleteBlock(id hdd.BlockId) error {
	mlog.Printf2("storage/bolt/bolt", "bbolt.DeleteBlock %v", id)
	k := util.Uint32Key(nil, uint32(id))
	return self.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(blockKey)
		if b.Get(k) == nil {
			return storage.ErrNotFound
		}
		return b.Delete(k)
	})
}

func (self *boltBackend) Flush() error {
	return self.db.Sync()
}

func (self *boltBackend) get(bucket, k []byte) (v []byte, err error) {
	err = self.db.View(func(tx *bbolt.Tx) error {
		// The slice is valid only within the transaction
		if bv := tx.Bucket(bucket).Get(k); bv != nil {
			v = append([]byte(nil), bv...)
		}
		return nil
	})
	return
}

func (self *boltBackend) set(bucket, k, v []byte) error {
	return self.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(k, v)
	})
}

func (self *boltBackend) GetBlock(id hdd.BlockId) ([]byte, error) {
	v, err := self.get(blockKey, util.Uint32Key(nil, uint32(id)))
	if err == nil && v == nil {
		err = storage.ErrNotFound
	}
	mlog.Printf2("storage/bolt/bolt", "bbolt.GetBlock %v: %d b %v", id, len(v), err)
	return v, err
}

func (self *boltBackend) GetState() ([]byte, error) {
	return self.get(stateKey, stateKey)
}

func (self *boltBackend) SetBlock(id hdd.BlockId, data []byte) error {
	mlog.Printf2("storage/bolt/bolt", "bbolt.SetBlock %v (%d b)", id, len(data))
	return self.set(blockKey, util.Uint32Key(nil, uint32(id)), data)
}

func (self *boltBackend) SetState(data []byte) error {
	return self.set(stateKey, stateKey, data)
}
