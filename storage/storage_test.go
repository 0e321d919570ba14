/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 16:50:31 2019 mstenber
 * Last modified: Thu Feb 14 11:44:09 2019 mstenber
 * Edit time:     34 min
 *
 */

package storage_test

import (
	"bytes"
	"testing"

	"github.com/fingon/go-hddfs/codec"
	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/storage"
	"github.com/fingon/go-hddfs/storage/inmemory"
	"github.com/stvp/assert"
)

func newStorage(t *testing.T, be storage.Backend, c codec.Codec, cacheSize int) *storage.Storage {
	st, err := storage.Storage{Backend: be, Codec: c, CacheSize: cacheSize}.Init()
	assert.Nil(t, err)
	return st
}

func TestStorage(t *testing.T) {
	t.Parallel()
	add := func(name string, c codec.Codec, cacheSize int) {
		t.Run(name, func(t *testing.T) {
			st := newStorage(t, inmemory.NewInMemoryBackend(), c, cacheSize)
			assert.Equal(t, st.MetaBlockId(), hdd.NoBlock)

			id, err := st.Create(make([]byte, 10), true)
			assert.Nil(t, err)
			assert.Equal(t, id, hdd.MetaBlockId)
			assert.Equal(t, st.MetaBlockId(), hdd.MetaBlockId)

			id2, err := st.Create([]byte("hello"), false)
			assert.Nil(t, err)
			assert.Equal(t, id2, hdd.BlockId(2))

			data, err := st.Read(id2)
			assert.Nil(t, err)
			assert.Equal(t, data, []byte("hello"))

			// Fixed size blocks
			assert.Equal(t, st.Overwrite(id2, []byte("hi")), storage.ErrSizeMismatch)
			assert.Nil(t, st.Overwrite(id2, []byte("world")))
			data, err = st.Read(id2)
			assert.Nil(t, err)
			assert.Equal(t, data, []byte("world"))

			assert.Equal(t, st.Overwrite(42, []byte("x")), storage.ErrNotFound)
			_, err = st.Read(42)
			assert.Equal(t, err, storage.ErrNotFound)

			assert.Nil(t, st.Delete(id2))
			assert.Equal(t, st.Delete(id2), storage.ErrNotFound)
			_, err = st.Read(id2)
			assert.Equal(t, err, storage.ErrNotFound)

			// Ids are not reused
			id3, err := st.Create(nil, false)
			assert.Nil(t, err)
			assert.Equal(t, id3, hdd.BlockId(3))
			data, err = st.Read(id3)
			assert.Nil(t, err)
			assert.Equal(t, len(data), 0)

			assert.Nil(t, st.Delete(hdd.MetaBlockId))
			assert.Equal(t, st.MetaBlockId(), hdd.NoBlock)

			assert.Nil(t, st.Format())
			_, err = st.Read(id3)
			assert.Equal(t, err, storage.ErrNotFound)
			id, err = st.Create([]byte("meta"), true)
			assert.Nil(t, err)
			assert.Equal(t, id, hdd.MetaBlockId)

			assert.Equal(t, st.Writes.GetInt(), 5)
			assert.Equal(t, st.Deletes.GetInt(), 2)
			assert.Nil(t, st.Close())
		})
	}
	add("plain", nil, 0)
	add("cached", nil, 2)
	add("compressed", &codec.CompressingCodec{}, 0)
	add("encrypted", codec.CodecChain{}.Init(
		codec.EncryptingCodec{}.Init([]byte("pw"), []byte("salt"), 16),
		&codec.CompressingCodec{}), 1)
}

func TestStorageCache(t *testing.T) {
	t.Parallel()
	st := newStorage(t, inmemory.NewInMemoryBackend(), nil, 10)
	data := []byte("cached")
	id, err := st.Create(data, false)
	assert.Nil(t, err)
	// Caller reusing its buffer does not affect the cache
	data[0] = 'X'
	for i := 0; i < 3; i++ {
		got, err := st.Read(id)
		assert.Nil(t, err)
		assert.Equal(t, got, []byte("cached"))
	}
	assert.Equal(t, st.Reads.GetInt(), 3)
	assert.Equal(t, st.CacheHits.GetInt(), 3)
	assert.Equal(t, st.BytesRead.GetInt(), 18)
}

func TestStorageState(t *testing.T) {
	t.Parallel()
	be := inmemory.NewInMemoryBackend()
	st := newStorage(t, be, nil, 0)
	for i := 0; i < 3; i++ {
		_, err := st.Create([]byte{byte(i)}, i == 1)
		assert.Nil(t, err)
	}
	assert.Nil(t, st.Flush())

	// Another Storage on same backend continues where we left off
	st2 := newStorage(t, be, nil, 0)
	assert.Equal(t, st2.MetaBlockId(), hdd.BlockId(2))
	id, err := st2.Create([]byte("x"), false)
	assert.Nil(t, err)
	assert.Equal(t, id, hdd.BlockId(4))
	data, err := st2.Read(3)
	assert.Nil(t, err)
	assert.Equal(t, data, []byte{2})
}

func TestStorageCodecBinding(t *testing.T) {
	t.Parallel()
	be := inmemory.NewInMemoryBackend()
	c := codec.EncryptingCodec{}.Init([]byte("pw"), []byte("salt"), 16)
	st := newStorage(t, be, c, 0)
	id1, err := st.Create([]byte("one"), false)
	assert.Nil(t, err)
	id2, err := st.Create([]byte("two"), false)
	assert.Nil(t, err)

	// Records moved under another id do not decrypt
	r1, err := be.GetBlock(id1)
	assert.Nil(t, err)
	assert.False(t, bytes.Contains(r1, []byte("one")))
	assert.Nil(t, be.SetBlock(id2, r1))
	_, err = st.Read(id2)
	assert.NotNil(t, err)
}
