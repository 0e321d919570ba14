/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Dec 28 11:20:29 2017 mstenber
 * Last modified: Tue Feb 12 16:01:40 2019 mstenber
 * Edit time:     60 min
 *
 */

package badger

import (
	"github.com/dgraph-io/badger"
	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/storage"
	"github.com/fingon/go-hddfs/util"
)

// badgerBackend provides on-disk storage.
//
// - key prefix 1 + big-endian block id -> block record
// - key 2 -> state record
type badgerBackend struct {
	db *badger.DB
}

var _ storage.Backend = &badgerBackend{}

var blockPrefix = []byte("1")
var stateKey = []byte("2")

// clearBatch is the number of deletes done per transaction in Clear;
// badger refuses too large transactions.
const clearBatch = 1000

func NewBadgerBackend() storage.Backend {
	return &badgerBackend{}
}

func (self *badgerBackend) Init(config storage.BackendConfiguration) error {
	opts := badger.DefaultOptions
	opts.Dir = config.Directory
	opts.ValueDir = config.Directory
	db, err := badger.Open(opts)
	if err != nil {
		return err
	}
	self.db = db
	return nil
}

func (self *badgerBackend) Close() error {
	return self.db.Close()
}

func blockKey(id hdd.BlockId) []byte {
	return util.Uint32Key(blockPrefix, uint32(id))
}

func (self *badgerBackend) Clear() error {
	mlog.Printf2("storage/badger/badger", "bad.Clear")
	for {
		keys := make([][]byte, 0, clearBatch)
		err := self.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(blockPrefix); it.ValidForPrefix(blockPrefix) && len(keys) < clearBatch; it.Next() {
				keys = append(keys, append([]byte(nil), it.Item().Key()...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		mlog.Printf2("storage/badger/badger", " deleting %d", len(keys))
		err = self.db.Update(func(txn *badger.Txn) error {
			for _, k := range keys {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
}

func (self *badgerBackend) DeleteBlock(id hdd.BlockId) error {
	mlog.Printf2("storage/badger/badger", "bad.DeleteBlock %v", id)
	k := blockKey(id)
	return self.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(k); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
}

func (self *badgerBackend) Flush() error {
	return nil
}

func (self *badgerBackend) get(k []byte) (v []byte, err error) {
	err = self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(k)
		if err == nil {
			v, err = i.ValueCopy(nil)
		}
		return err
	})
	return
}

func (self *badgerBackend) set(k, v []byte) error {
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (self *badgerBackend) GetBlock(id hdd.BlockId) ([]byte, error) {
	v, err := self.get(blockKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, storage.ErrNotFound
	}
	mlog.Printf2("storage/badger/badger", "bad.GetBlock %v: %d b %v", id, len(v), err)
	return v, err
}

func (self *badgerBackend) GetState() ([]byte, error) {
	v, err := self.get(stateKey)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	return v, err
}

func (self *badgerBackend) SetBlock(id hdd.BlockId, data []byte) error {
	mlog.Printf2("storage/badger/badger", "bad.SetBlock %v (%d b)", id, len(data))
	return self.set(blockKey(id), data)
}

func (self *badgerBackend) SetState(data []byte) error {
	return self.set(stateKey, data)
}
