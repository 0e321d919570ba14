/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 12:10:09 2019 mstenber
 * Last modified: Wed Feb 13 13:02:44 2019 mstenber
 * Edit time:     19 min
 *
 */

package fileio

import (
	"errors"
	"io"
)

// File adapts a handle of a Session to the io interfaces.
type File struct {
	session *Session
	handle  Handle
	name    string
}

var _ io.ReadWriteSeeker = &File{}
var _ io.Closer = &File{}

var errWhence = errors.New("invalid whence")

func (self *Session) OpenFile(name string) (*File, error) {
	h, err := self.Open(name)
	if err != nil {
		return nil, err
	}
	return &File{session: self, handle: h, name: name}, nil
}

func (self *File) Name() string {
	return self.name
}

// Read returns io.EOF instead of reading nothing.
func (self *File) Read(p []byte) (int, error) {
	n, err := self.session.Read(self.handle, p)
	if err == nil && n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, err
}

func (self *File) Write(p []byte) (int, error) {
	return self.session.Write(self.handle, p)
}

func (self *File) Seek(offset int64, whence int) (int64, error) {
	d, err := self.session.Stat(self.handle)
	if err != nil {
		return 0, err
	}
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += int64(d.Cursor)
	case io.SeekEnd:
		offset += int64(d.Size)
	default:
		return 0, &ValidationError{Op: "seek", Err: errWhence}
	}
	if offset < 0 || offset > int64(d.Size) {
		return 0, &ValidationError{Op: "seek", Err: ErrSeekPastEnd}
	}
	if err = self.session.Seek(self.handle, uint32(offset)); err != nil {
		return 0, err
	}
	return offset, nil
}

func (self *File) Close() error {
	return self.session.Close(self.handle)
}
