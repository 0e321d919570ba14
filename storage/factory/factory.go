/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 16:40:08 2018 mstenber
 * Last modified: Thu Feb 14 11:30:21 2019 mstenber
 * Edit time:     58 min
 *
 */

package factory

import (
	"fmt"
	"sort"

	"github.com/fingon/go-hddfs/codec"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/storage"
	"github.com/fingon/go-hddfs/storage/badger"
	"github.com/fingon/go-hddfs/storage/bolt"
	"github.com/fingon/go-hddfs/storage/file"
	"github.com/fingon/go-hddfs/storage/inmemory"
)

type factoryCallback func() storage.Backend

var backendFactories = map[string]factoryCallback{
	"inmemory": func() storage.Backend {
		return inmemory.NewInMemoryBackend()
	},
	"badger": func() storage.Backend {
		return badger.NewBadgerBackend()
	},
	"bolt": func() storage.Backend {
		return bolt.NewBoltBackend()
	},
	"file": func() storage.Backend {
		return file.NewFileBackend()
	}}

// List returns the known backend names, sorted.
func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func New(name string, config storage.BackendConfiguration) (storage.Backend, error) {
	mlog.Printf2("storage/factory/factory", "f.New %v %v", name, config.Directory)
	cb, ok := backendFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (known: %v)", name, List())
	}
	be := cb()
	if err := be.Init(config); err != nil {
		return nil, err
	}
	return be, nil
}

type StorageConfiguration struct {
	storage.BackendConfiguration
	BackendName    string
	Password, Salt string
	Iterations     int

	// Compression defaults to LZ4.
	Compression codec.CompressionType
}

// NewStorage constructs backend and the Storage on top of it. The
// codec is always compressing; with Password set it also encrypts.
func NewStorage(config StorageConfiguration) (*storage.Storage, error) {
	mlog.Printf2("storage/factory/factory", "f.NewStorage")
	iterations := config.Iterations
	if iterations == 0 {
		iterations = 12345
	}
	salt := config.Salt
	if salt == "" {
		salt = "asdf"
	}
	name := config.BackendName
	if name == "" {
		name = "inmemory"
	}
	beconfig := config.BackendConfiguration
	c2 := &codec.CompressingCodec{Type: config.Compression}
	c := &codec.CodecChain{}
	if config.Password != "" {
		mlog.Printf2("storage/factory/factory", " with encryption + compression")
		c1 := codec.EncryptingCodec{}.Init([]byte(config.Password), []byte(salt), iterations)
		c = c.Init(c1, c2)
	} else {
		mlog.Printf2("storage/factory/factory", " only compression")
		c = c.Init(c2)
	}
	beconfig.Codec = c
	be, err := New(name, beconfig)
	if err != nil {
		return nil, err
	}
	st, err := storage.Storage{Backend: be, Codec: beconfig.Codec,
		CacheSize: beconfig.CacheSize}.Init()
	if err != nil {
		be.Close()
		return nil, err
	}
	return st, nil
}
