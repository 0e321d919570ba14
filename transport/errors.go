/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 11 14:02:19 2019 mstenber
 * Last modified: Tue Feb 12 11:40:03 2019 mstenber
 * Edit time:     12 min
 *
 */

package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionClosed is reported when a read or write moves
	// zero bytes; the peer is assumed to be gone.
	ErrConnectionClosed = errors.New("connection closed by peer")

	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")

	// ErrPayloadTooLarge is reported when the payload announced by
	// a command or response does not fit the caller's buffer.
	ErrPayloadTooLarge = errors.New("payload larger than buffer")
)

// Error wraps any failure to create, connect or use the connection.
type Error struct {
	Op  string
	Err error
}

func (self *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", self.Op, self.Err)
}

func (self *Error) Unwrap() error {
	return self.Err
}
