/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 14:30:51 2019 mstenber
 * Last modified: Thu Feb 14 15:31:09 2019 mstenber
 * Edit time:     57 min
 *
 */

package workload

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/fingon/go-hddfs/fileio"
	"github.com/fingon/go-hddfs/mlog"
)

const (
	// MaxOpenFiles is the number of files simulator keeps open at
	// a time.
	MaxOpenFiles = 128

	// MaxTextLength bounds what a single WRITE(AT) can write.
	MaxTextLength = 1024

	maxLineLength = 2048
)

var ErrTooManyFiles = errors.New("too many open files")

// Simulator runs workload lines against a Session. Files are opened
// on first use, and closed on UNMOUNT.
type Simulator struct {
	Session *fileio.Session

	files map[string]fileio.Handle
	order []string

	// Statistics
	Lines, BytesWritten, BytesRead int
}

func (self Simulator) Init() *Simulator {
	self.files = make(map[string]fileio.Handle)
	return &self
}

func result(err error) int {
	if err != nil {
		mlog.Printf2("workload/simulator", " -> %v", err)
		return -1
	}
	return 0
}

func (self *Simulator) expect(l Line, got int) error {
	if got != l.Length {
		return fmt.Errorf("line %d: %s returned %d, expected %d",
			l.Number, l.Command, got, l.Length)
	}
	return nil
}

func (self *Simulator) closeAll() error {
	for _, name := range self.order {
		mlog.Printf2("workload/simulator", " closing %s", name)
		if err := self.Session.Close(self.files[name]); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
		delete(self.files, name)
	}
	self.order = nil
	return nil
}

func (self *Simulator) handle(name string) (fileio.Handle, error) {
	if h, ok := self.files[name]; ok {
		return h, nil
	}
	if len(self.order) >= MaxOpenFiles {
		return -1, ErrTooManyFiles
	}
	mlog.Printf2("workload/simulator", " opening %s", name)
	h, err := self.Session.Open(name)
	if err != nil {
		return -1, err
	}
	self.files[name] = h
	self.order = append(self.order, name)
	return h, nil
}

func (self *Simulator) write(l Line, h fileio.Handle) error {
	if l.Length >= MaxTextLength {
		return fmt.Errorf("line %d: text too large (%d)", l.Number, l.Length)
	}
	data, err := l.Data()
	if err != nil {
		return err
	}
	n, err := self.Session.Write(h, data)
	if err != nil {
		return fmt.Errorf("line %d: write %s: %w", l.Number, l.File, err)
	}
	self.BytesWritten += n
	return nil
}

// Execute runs single line.
func (self *Simulator) Execute(l Line) error {
	mlog.Printf2("workload/simulator", "sim.Execute %v", l)
	self.Lines++
	switch l.Command {
	case CommandFormat:
		return self.expect(l, result(self.Session.Format()))
	case CommandMount:
		return self.expect(l, result(self.Session.Mount()))
	case CommandUnmount:
		if err := self.closeAll(); err != nil {
			return fmt.Errorf("line %d: %w", l.Number, err)
		}
		return self.expect(l, result(self.Session.Unmount()))
	case CommandWrite, CommandWriteAt, CommandSeek, CommandRead:
	default:
		return fmt.Errorf("line %d: unknown command %q", l.Number, l.Command)
	}

	h, err := self.handle(l.File)
	if err != nil {
		return fmt.Errorf("line %d: open %s: %w", l.Number, l.File, err)
	}
	switch l.Command {
	case CommandWriteAt:
		if l.Offset < 0 {
			return fmt.Errorf("line %d: bad offset %d", l.Number, l.Offset)
		}
		if err = self.Session.Seek(h, uint32(l.Offset)); err != nil {
			return fmt.Errorf("line %d: seek %s: %w", l.Number, l.File, err)
		}
		return self.write(l, h)
	case CommandWrite:
		return self.write(l, h)
	case CommandSeek:
		if l.Offset < 0 {
			return self.expect(l, -1)
		}
		return self.expect(l, result(self.Session.Seek(h, uint32(l.Offset))))
	}
	// CommandRead
	if l.Length < 0 {
		return fmt.Errorf("line %d: bad length %d", l.Number, l.Length)
	}
	n, err := self.Session.Read(h, make([]byte, l.Length))
	if err != nil {
		return fmt.Errorf("line %d: read %s: %w", l.Number, l.File, err)
	}
	self.BytesRead += n
	return self.expect(l, n)
}

// Run executes every line of r, stopping at the first failure.
func (self *Simulator) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLineLength), maxLineLength)
	number := 0
	for scanner.Scan() {
		number++
		l, err := ParseLine(number, scanner.Text())
		if err != nil {
			return err
		}
		if err = self.Execute(l); err != nil {
			return err
		}
	}
	return scanner.Err()
}
