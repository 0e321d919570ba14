/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Jan 16 14:38:35 2018 mstenber
 * Last modified: Thu Feb 14 14:12:45 2019 mstenber
 * Edit time:     188 min
 *
 */

// server package is the block storage service end of the hdd
// protocol. Every connection is served lock-step by its own
// goroutine; the blocks live in a shared storage.Storage.
package server

import (
	"log"
	"net"

	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/storage"
	"github.com/fingon/go-hddfs/transport"
	"github.com/fingon/go-hddfs/util"
)

type Server struct {
	Family, Address string
	Storage         *storage.Storage

	// MaxBlockSize is the largest payload accepted; 0 means
	// hdd.MaxBlockSize.
	MaxBlockSize uint32

	// MaxConnections bounds the clients served at once; the rest
	// wait in the listen backlog. 0 means util.DefaultLimit.
	MaxConnections int

	listener net.Listener
	limiter  util.Limiter
	wg       util.SimpleWaitGroup
	lock     util.MutexLocked
	conns    map[net.Conn]bool
	closed   bool

	// Statistics
	Connections, Commands, Failures util.AtomicInt
}

func (self Server) Init() *Server {
	if self.Family == "" {
		self.Family = hdd.DefaultFamily
	}
	if self.Address == "" {
		self.Address = hdd.DefaultAddress
	}
	if self.MaxBlockSize == 0 {
		self.MaxBlockSize = hdd.MaxBlockSize
	}
	self.limiter.Limit = self.MaxConnections
	lis, err := net.Listen(self.Family, self.Address)
	if err != nil {
		log.Panic(err)
	}
	self.listener = lis
	self.conns = make(map[net.Conn]bool)
	mlog.Printf2("server/server", "Server at %s %s", self.Family, lis.Addr())
	s := &self
	s.wg.Go(s.acceptLoop)
	return s
}

// Addr returns the address the server is actually listening at
// (useful with port 0).
func (self *Server) Addr() string {
	return self.listener.Addr().String()
}

// Close stops accepting, drops the current connections, and waits
// for their goroutines to finish. Storage is left open.
func (self *Server) Close() {
	unlock := self.lock.Locked()
	self.closed = true
	self.listener.Close()
	for conn := range self.conns {
		conn.Close()
	}
	unlock()
	self.wg.Wait()
}

func (self *Server) acceptLoop() {
	for {
		release := self.limiter.Limited()
		conn, err := self.listener.Accept()
		if err != nil {
			release()
			unlock := self.lock.Locked()
			closed := self.closed
			unlock()
			if !closed {
				log.Printf("server: accept failed: %v", err)
			}
			return
		}
		unlock := self.lock.Locked()
		if self.closed {
			unlock()
			release()
			conn.Close()
			return
		}
		self.conns[conn] = true
		unlock()
		self.Connections.Add(1)
		self.wg.Go(func() {
			defer release()
			self.serve(conn)
		})
	}
}

func (self *Server) forget(conn net.Conn) {
	defer self.lock.Locked()()
	delete(self.conns, conn)
	conn.Close()
}

func (self *Server) serve(conn net.Conn) {
	defer self.forget(conn)
	mlog.Printf2("server/server", "serve %v", conn.RemoteAddr())
	var word [hdd.WordSize]byte
	for {
		if err := transport.ReadFull(conn, word[:]); err != nil {
			if err != transport.ErrConnectionClosed {
				mlog.Printf2("server/server", " read failed: %v", err)
			}
			return
		}
		cmd := hdd.DecodeCommand(hdd.Word(word[:]))
		self.Commands.Add(1)
		var payload []byte
		tooLarge := false
		if cmd.HasPayload() {
			if cmd.BlockSize > self.MaxBlockSize {
				tooLarge = true
				if err := transport.Discard(conn, int(cmd.BlockSize)); err != nil {
					return
				}
			} else {
				payload = make([]byte, cmd.BlockSize)
				if err := transport.ReadFull(conn, payload); err != nil {
					return
				}
			}
		}
		var resp hdd.Response
		var out []byte
		var done bool
		if tooLarge {
			mlog.Printf2("server/server", " %v: too large", cmd)
			resp = failure(cmd)
		} else {
			resp, out, done = self.process(cmd, payload)
		}
		if resp.Failed {
			self.Failures.Add(1)
		}
		hdd.PutWord(word[:], resp.Encode())
		if err := transport.WriteFull(conn, word[:]); err != nil {
			return
		}
		if out != nil {
			if err := transport.WriteFull(conn, out); err != nil {
				return
			}
		}
		if done {
			return
		}
	}
}

func failure(cmd hdd.Command) hdd.Response {
	return hdd.Response{Op: cmd.Op, Flag: cmd.Flag, Failed: true,
		BlockId: cmd.BlockId}
}

// process acts on a single command. out is the payload to send
// after the response, and done is set if the connection should be
// closed after the response has been sent.
func (self *Server) process(cmd hdd.Command, payload []byte) (resp hdd.Response, out []byte, done bool) {
	mlog.Printf2("server/server", "process %v", cmd)
	resp = failure(cmd)
	if cmd.Flag.IsDevice() {
		if cmd.Op != hdd.OpDevice {
			return
		}
		switch cmd.Flag {
		case hdd.FlagInit:
		case hdd.FlagFormat:
			if err := self.Storage.Format(); err != nil {
				mlog.Printf2("server/server", " format failed: %v", err)
				return
			}
		case hdd.FlagSaveAndClose:
			done = true
			if err := self.Storage.Flush(); err != nil {
				mlog.Printf2("server/server", " flush failed: %v", err)
				return
			}
		}
		resp.Failed = false
		return
	}
	meta := cmd.Flag == hdd.FlagMetaBlock
	switch cmd.Op {
	case hdd.OpCreateBlock:
		id, err := self.Storage.Create(payload, meta)
		if err != nil {
			mlog.Printf2("server/server", " create failed: %v", err)
			return
		}
		resp.BlockId = id
		resp.BlockSize = cmd.BlockSize
	case hdd.OpReadBlock:
		id := cmd.BlockId
		if id == hdd.NoBlock && meta {
			id = self.Storage.MetaBlockId()
		}
		data, err := self.Storage.Read(id)
		if err != nil {
			mlog.Printf2("server/server", " read %v failed: %v", id, err)
			return
		}
		resp.BlockId = id
		resp.BlockSize = uint32(len(data))
		out = data
	case hdd.OpOverwriteBlock:
		if err := self.Storage.Overwrite(cmd.BlockId, payload); err != nil {
			mlog.Printf2("server/server", " overwrite failed: %v", err)
			return
		}
		resp.BlockSize = cmd.BlockSize
	case hdd.OpDeleteBlock:
		if err := self.Storage.Delete(cmd.BlockId); err != nil {
			mlog.Printf2("server/server", " delete failed: %v", err)
			return
		}
	}
	resp.Failed = false
	return
}
