/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 09:02:44 2019 mstenber
 * Last modified: Wed Feb 13 11:17:30 2019 mstenber
 * Edit time:     15 min
 *
 */

package fileio

import (
	"errors"
	"fmt"

	"github.com/fingon/go-hddfs/hdd"
)

var (
	ErrBadHandle    = errors.New("bad file handle")
	ErrBadName      = errors.New("bad file name")
	ErrTableFull    = errors.New("file table full")
	ErrAlreadyOpen  = errors.New("file already open")
	ErrNotOpen      = errors.New("file not open")
	ErrNotMounted   = errors.New("not mounted")
	ErrSeekPastEnd  = errors.New("seek past end of file")
	ErrFileTooLarge = errors.New("file too large")
	ErrBadTable     = errors.New("corrupt file table")
)

// ValidationError is returned when the arguments or the state of the
// session do not permit the operation; nothing was sent to the
// service.
type ValidationError struct {
	Op  string
	Err error
}

func (self *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", self.Op, self.Err)
}

func (self *ValidationError) Unwrap() error {
	return self.Err
}

// ErrProtocolFailure matches (with errors.Is) every ProtocolError.
var ErrProtocolFailure = errors.New("block service reported failure")

// ProtocolError is returned when the service responds with failure
// (or with a response that does not fit the command).
type ProtocolError struct {
	Op       string
	Command  hdd.Command
	Response hdd.Response
}

func (self *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v -> %v", self.Op, self.Command, self.Response)
}

func (self *ProtocolError) Is(target error) bool {
	return target == ErrProtocolFailure
}
