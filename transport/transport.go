/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 11 13:10:44 2019 mstenber
 * Last modified: Wed Feb 13 15:22:37 2019 mstenber
 * Edit time:     86 min
 *
 */

// transport package moves single commands (and their payloads) to the
// block storage service and brings back the responses.
//
// The exchange is strictly lock-step: one command word, optional
// request payload, one response word, optional response payload. Only
// one exchange is in flight at a time; callers that share a Client
// between goroutines have to serialize themselves.
package transport

import (
	"io"
	"net"

	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/util"
)

type DialFunc func(family, address string) (net.Conn, error)

type Configuration struct {
	// Family and Address are passed to Dial; empty values mean
	// hdd.DefaultFamily and hdd.DefaultAddress.
	Family, Address string

	// Dial defaults to net.Dial.
	Dial DialFunc
}

// Client owns at most one connection at a time. It is created by
// command carrying FlagInit, and torn down by one carrying
// FlagSaveAndClose (or Close).
type Client struct {
	Configuration

	conn net.Conn

	// Statistics
	Commands, BytesSent, BytesReceived util.AtomicInt
}

func (self Client) Init() *Client {
	if self.Family == "" {
		self.Family = hdd.DefaultFamily
	}
	if self.Address == "" {
		self.Address = hdd.DefaultAddress
	}
	if self.Dial == nil {
		self.Dial = net.Dial
	}
	return &self
}

func (self *Client) IsConnected() bool {
	return self.conn != nil
}

// Close drops the connection, if any, without telling the service.
func (self *Client) Close() error {
	if self.conn == nil {
		return nil
	}
	mlog.Printf2("transport/transport", "c.Close")
	err := self.conn.Close()
	self.conn = nil
	return err
}

func (self *Client) connect() error {
	if self.conn != nil {
		return &Error{Op: "connect", Err: ErrAlreadyConnected}
	}
	mlog.Printf2("transport/transport", "c.connect %s %s", self.Family, self.Address)
	conn, err := self.Dial(self.Family, self.Address)
	if err != nil {
		return &Error{Op: "connect", Err: err}
	}
	self.conn = conn
	return nil
}

// Execute performs one exchange with the service. buf provides the
// request payload (Create/Overwrite of plain or meta blocks) and
// receives the response payload (ReadBlock responses); it may be nil
// when neither is expected.
//
// A response with Failed set is not an error at this level; error is
// returned only when the exchange itself did not complete.
func (self *Client) Execute(cmd hdd.Command, buf []byte) (resp hdd.Response, err error) {
	mlog.Printf2("transport/transport", "c.Execute %v", cmd)
	if cmd.Flag == hdd.FlagInit {
		if err = self.connect(); err != nil {
			return
		}
	} else if self.conn == nil {
		err = &Error{Op: "execute", Err: ErrNotConnected}
		return
	}
	var payload []byte
	if cmd.HasPayload() {
		if int(cmd.BlockSize) > len(buf) {
			err = &Error{Op: "send", Err: ErrPayloadTooLarge}
			return
		}
		payload = buf[:cmd.BlockSize]
	}
	self.Commands.Add(1)

	var word [hdd.WordSize]byte
	hdd.PutWord(word[:], cmd.Encode())
	if err = self.send(word[:]); err != nil {
		return
	}
	if payload != nil {
		if err = self.send(payload); err != nil {
			return
		}
	}

	if err = self.receive(word[:]); err != nil {
		return
	}
	resp = hdd.DecodeResponse(hdd.Word(word[:]))
	mlog.Printf2("transport/transport", " response %v", resp)
	if resp.HasPayload() {
		size := int(resp.BlockSize)
		if size > len(buf) {
			// Keep the stream in sync before complaining
			if err = self.drain(size); err != nil {
				return
			}
			err = &Error{Op: "receive", Err: ErrPayloadTooLarge}
			return
		}
		if err = self.receive(buf[:size]); err != nil {
			return
		}
	}

	if cmd.Flag == hdd.FlagSaveAndClose {
		if cerr := self.Close(); cerr != nil {
			mlog.Printf2("transport/transport", " close failed: %v", cerr)
		}
	}
	return
}

func (self *Client) send(b []byte) error {
	if err := WriteFull(self.conn, b); err != nil {
		return &Error{Op: "send", Err: err}
	}
	self.BytesSent.AddInt(len(b))
	return nil
}

func (self *Client) receive(b []byte) error {
	if err := ReadFull(self.conn, b); err != nil {
		return &Error{Op: "receive", Err: err}
	}
	self.BytesReceived.AddInt(len(b))
	return nil
}

func (self *Client) drain(size int) error {
	if err := Discard(self.conn, size); err != nil {
		return &Error{Op: "receive", Err: err}
	}
	self.BytesReceived.AddInt(size)
	return nil
}

// WriteFull writes all of b. Short writes are continued from where
// they left off; a write that moves nothing without error means the
// peer is gone.
func WriteFull(w io.Writer, b []byte) error {
	for done := 0; done < len(b); {
		n, err := w.Write(b[done:])
		done += n
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConnectionClosed
		}
	}
	return nil
}

// ReadFull fills all of b. A read returning zero bytes (or io.EOF)
// before b is full is ErrConnectionClosed rather than a reason to
// spin.
func ReadFull(r io.Reader, b []byte) error {
	for done := 0; done < len(b); {
		n, err := r.Read(b[done:])
		done += n
		if done == len(b) {
			return nil
		}
		if err == io.EOF {
			return ErrConnectionClosed
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConnectionClosed
		}
	}
	return nil
}

const discardChunk = 65536

// Discard reads and throws away exactly size bytes.
func Discard(r io.Reader, size int) error {
	buf := make([]byte, util.IMin(size, discardChunk))
	for size > 0 {
		chunk := buf[:util.IMin(size, len(buf))]
		if err := ReadFull(r, chunk); err != nil {
			return err
		}
		size -= len(chunk)
	}
	return nil
}
