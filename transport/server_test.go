/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Feb 14 16:02:11 2019 mstenber
 * Last modified: Thu Feb 14 16:20:40 2019 mstenber
 * Edit time:     18 min
 *
 */

package transport_test

import (
	"errors"
	"testing"

	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/server"
	"github.com/fingon/go-hddfs/storage/factory"
	"github.com/fingon/go-hddfs/transport"
	"github.com/stvp/assert"
)

func TestClientServer(t *testing.T) {
	t.Parallel()
	st, err := factory.NewStorage(factory.StorageConfiguration{})
	assert.Nil(t, err)
	s := server.Server{Address: "127.0.0.1:0", Storage: st}.Init()
	defer s.Close()

	c := transport.Client{Configuration: transport.Configuration{Address: s.Addr()}}.Init()
	_, err = c.Execute(hdd.Command{Op: hdd.OpReadBlock, BlockId: 1, BlockSize: 1}, make([]byte, 1))
	assert.True(t, errors.Is(err, transport.ErrNotConnected))

	resp, err := c.Execute(hdd.Command{Op: hdd.OpDevice, Flag: hdd.FlagInit}, nil)
	assert.Nil(t, err)
	assert.False(t, resp.Failed)
	assert.True(t, c.IsConnected())

	resp, err = c.Execute(hdd.Command{Op: hdd.OpDevice, Flag: hdd.FlagFormat}, nil)
	assert.Nil(t, err)
	assert.False(t, resp.Failed)

	data := []byte("hello block")
	size := uint32(len(data))
	resp, err = c.Execute(hdd.Command{Op: hdd.OpCreateBlock, BlockSize: size}, data)
	assert.Nil(t, err)
	assert.False(t, resp.Failed)
	bid := resp.BlockId
	assert.NotEqual(t, bid, hdd.NoBlock)

	buf := make([]byte, size)
	resp, err = c.Execute(hdd.Command{Op: hdd.OpReadBlock, BlockId: bid, BlockSize: size}, buf)
	assert.Nil(t, err)
	assert.False(t, resp.Failed)
	assert.Equal(t, resp.BlockSize, size)
	assert.Equal(t, buf, data)

	resp, err = c.Execute(hdd.Command{Op: hdd.OpOverwriteBlock, BlockId: bid, BlockSize: size}, []byte("HELLO BLOCK"))
	assert.Nil(t, err)
	assert.False(t, resp.Failed)
	_, err = c.Execute(hdd.Command{Op: hdd.OpReadBlock, BlockId: bid, BlockSize: size}, buf)
	assert.Nil(t, err)
	assert.Equal(t, string(buf), "HELLO BLOCK")

	resp, err = c.Execute(hdd.Command{Op: hdd.OpDeleteBlock, BlockId: bid}, nil)
	assert.Nil(t, err)
	assert.False(t, resp.Failed)
	resp, err = c.Execute(hdd.Command{Op: hdd.OpDeleteBlock, BlockId: bid}, nil)
	assert.Nil(t, err)
	assert.True(t, resp.Failed)

	resp, err = c.Execute(hdd.Command{Op: hdd.OpDevice, Flag: hdd.FlagSaveAndClose}, nil)
	assert.Nil(t, err)
	assert.False(t, resp.Failed)
	assert.False(t, c.IsConnected())
	assert.Equal(t, c.Commands.GetInt(), 9)
}
