/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 14:02:10 2019 mstenber
 * Last modified: Thu Feb 14 15:20:44 2019 mstenber
 * Edit time:     44 min
 *
 */

// workload package drives fileio.Session from workload files, and
// provides the other client side tools (file extraction and the
// randomized self test).
//
// Workload file has one command per line:
//
//	<file> <COMMAND> <len> <off> :<text>
//
// where COMMAND is FORMAT, MOUNT, UNMOUNT, WRITE, WRITEAT, SEEK or
// READ. For the device commands and SEEK, len is the expected result
// (0 success, -1 failure). For WRITE and WRITEAT the first len bytes
// of text are written ('*' stands for newline); WRITEAT seeks to off
// first. READ reads len bytes.
package workload

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	CommandFormat  = "FORMAT"
	CommandMount   = "MOUNT"
	CommandUnmount = "UNMOUNT"
	CommandWrite   = "WRITE"
	CommandWriteAt = "WRITEAT"
	CommandSeek    = "SEEK"
	CommandRead    = "READ"
)

// Line is a parsed workload line.
type Line struct {
	Number         int
	File, Command  string
	Length, Offset int

	// Text is everything after the first ':', verbatim.
	Text string
}

func (self Line) String() string {
	return fmt.Sprintf("%d: %s %s %d %d", self.Number, self.File,
		self.Command, self.Length, self.Offset)
}

// Data returns the data to write: Length bytes of Text, with '*'
// replaced by newline.
func (self Line) Data() ([]byte, error) {
	if self.Length < 0 || self.Length > len(self.Text) {
		return nil, fmt.Errorf("line %d: text shorter than %d", self.Number, self.Length)
	}
	return []byte(strings.Replace(self.Text[:self.Length], "*", "\n", -1)), nil
}

func ParseLine(number int, s string) (l Line, err error) {
	l.Number = number
	sep := strings.IndexByte(s, ':')
	if sep < 0 {
		err = fmt.Errorf("line %d: missing ':'", number)
		return
	}
	fields := strings.Fields(s[:sep])
	if len(fields) < 4 {
		err = fmt.Errorf("line %d: unparsable %q", number, s)
		return
	}
	l.File = fields[0]
	l.Command = fields[1]
	if l.Length, err = strconv.Atoi(fields[2]); err != nil {
		err = fmt.Errorf("line %d: bad length: %w", number, err)
		return
	}
	if l.Offset, err = strconv.Atoi(fields[3]); err != nil {
		err = fmt.Errorf("line %d: bad offset: %w", number, err)
		return
	}
	l.Text = strings.TrimRight(s[sep+1:], "\r\n")
	return
}
