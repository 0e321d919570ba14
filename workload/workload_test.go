/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 16:02:45 2019 mstenber
 * Last modified: Thu Feb 14 15:50:31 2019 mstenber
 * Edit time:     41 min
 *
 */

package workload

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fingon/go-hddfs/fileio"
	"github.com/fingon/go-hddfs/server"
	"github.com/fingon/go-hddfs/storage/factory"
	"github.com/fingon/go-hddfs/transport"
	"github.com/fingon/go-hddfs/util"
	"github.com/stvp/assert"
)

func newSession(t *testing.T) (*fileio.Session, *server.Server) {
	st, err := factory.NewStorage(factory.StorageConfiguration{})
	assert.Nil(t, err)
	s := server.Server{Address: "127.0.0.1:0", Storage: st}.Init()
	c := transport.Client{Configuration: transport.Configuration{Address: s.Addr()}}.Init()
	session, err := fileio.NewSession(c, fileio.Configuration{})
	assert.Nil(t, err)
	return session, s
}

func TestParseLine(t *testing.T) {
	t.Parallel()
	l, err := ParseLine(3, "a.txt WRITEAT 5 10 :hel*o world\r\n")
	assert.Nil(t, err)
	assert.Equal(t, l.Number, 3)
	assert.Equal(t, l.File, "a.txt")
	assert.Equal(t, l.Command, CommandWriteAt)
	assert.Equal(t, l.Length, 5)
	assert.Equal(t, l.Offset, 10)
	assert.Equal(t, l.Text, "hel*o world")
	data, err := l.Data()
	assert.Nil(t, err)
	assert.Equal(t, data, []byte("hel\no"))
	assert.Equal(t, l.String(), "3: a.txt WRITEAT 5 10")

	l, err = ParseLine(1, "x FORMAT -1 0 :")
	assert.Nil(t, err)
	assert.Equal(t, l.Length, -1)
	assert.Equal(t, l.Text, "")

	// Text may contain ':'
	l, err = ParseLine(1, "x WRITE 3 0 :a:b")
	assert.Nil(t, err)
	assert.Equal(t, l.Text, "a:b")

	l, err = ParseLine(1, "x WRITE 10 0 :short")
	assert.Nil(t, err)
	_, err = l.Data()
	assert.NotNil(t, err)

	for _, s := range []string{
		"x WRITE 1 0 abc",
		"x WRITE 1 :abc",
		"x WRITE one 0 :abc",
		"x WRITE 1 zero :abc",
		"",
	} {
		_, err = ParseLine(1, s)
		assert.NotNil(t, err, "accepted:", s)
	}
}

const script = `dummy FORMAT 0 0 :
dummy MOUNT 0 0 :
a.txt WRITE 11 0 :hello world
a.txt SEEK 0 0 :
a.txt READ 5 0 :
a.txt SEEK -1 100 :
b.txt WRITEAT 6 0 :line1*
b.txt WRITE 6 0 :line2*
a.txt WRITEAT 5 6 :WORLD
dummy UNMOUNT 0 0 :
dummy MOUNT 0 0 :
b.txt SEEK 0 6 :
b.txt READ 6 0 :
a.txt READ 0 0 :
dummy UNMOUNT 0 0 :
dummy UNMOUNT -1 0 :
`

func TestSimulator(t *testing.T) {
	t.Parallel()
	session, s := newSession(t)
	defer s.Close()
	sim := Simulator{Session: session}.Init()
	assert.Nil(t, sim.Run(strings.NewReader(script)))
	assert.Equal(t, sim.Lines, 16)
	assert.Equal(t, sim.BytesWritten, 11+6+6+5)
	assert.Equal(t, sim.BytesRead, 5+6)
	assert.False(t, session.IsMounted())

	var buf bytes.Buffer
	n, err := Extract(session, "a.txt", &buf)
	assert.Nil(t, err)
	assert.Equal(t, n, int64(11))
	assert.Equal(t, buf.String(), "hello WORLD")

	buf.Reset()
	_, err = Extract(session, "b.txt", &buf)
	assert.Nil(t, err)
	assert.Equal(t, buf.String(), "line1\nline2\n")
	assert.False(t, session.IsMounted())
}

func TestSimulatorFailures(t *testing.T) {
	t.Parallel()
	session, s := newSession(t)
	defer s.Close()
	for _, bad := range []string{
		// Result mismatch
		"dummy MOUNT 0 0 :",
		"dummy FORMAT 0 0 :\nx SEEK 0 1 :",
		"dummy FORMAT 0 0 :\nx READ 1 0 :",
		// Unknown command
		"dummy FORMAT 0 0 :\nx DELETE 0 0 :",
		// Not enough text
		"dummy FORMAT 0 0 :\nx WRITE 5 0 :abc",
		// Unparsable
		"dummy FORMAT 0 0",
	} {
		sim := Simulator{Session: session}.Init()
		assert.NotNil(t, sim.Run(strings.NewReader(bad)), "accepted:", bad)
	}
}

func TestSimulatorTooManyFiles(t *testing.T) {
	t.Parallel()
	session, s := newSession(t)
	defer s.Close()
	sim := Simulator{Session: session}.Init()
	assert.Nil(t, sim.Execute(Line{Command: CommandFormat}))
	for i := 0; i < MaxOpenFiles; i++ {
		l := Line{File: fmt.Sprintf("f%d", i), Command: CommandSeek}
		assert.Nil(t, sim.Execute(l))
	}
	err := sim.Execute(Line{File: "one-too-many", Command: CommandSeek})
	assert.NotNil(t, err)
	assert.Nil(t, sim.Execute(Line{Command: CommandUnmount}))
}

func TestExtractMissing(t *testing.T) {
	t.Parallel()
	session, s := newSession(t)
	defer s.Close()
	assert.Nil(t, session.Format())
	f, err := session.OpenFile("a.txt")
	assert.Nil(t, err)
	_, err = f.Write([]byte("data"))
	assert.Nil(t, err)
	assert.Nil(t, session.Unmount())
	assert.Nil(t, session.Mount())
	before := session.Table()
	assert.Nil(t, session.Unmount())

	var buf bytes.Buffer
	for _, name := range []string{"typo.txt", ""} {
		n, err := Extract(session, name, &buf)
		assert.True(t, errors.Is(err, ErrNotFound), name, err)
		assert.Equal(t, n, int64(0))
		assert.False(t, session.IsMounted())
	}
	assert.Equal(t, buf.Len(), 0)

	// Nothing was added to the device
	assert.Nil(t, session.Mount())
	assert.Equal(t, session.Table(), before)
	assert.Nil(t, session.Unmount())

	n, err := Extract(session, "a.txt", &buf)
	assert.Nil(t, err)
	assert.Equal(t, n, int64(4))
	assert.Equal(t, buf.String(), "data")
}

func TestExercise(t *testing.T) {
	t.Parallel()
	session, s := newSession(t)
	defer s.Close()
	assert.Nil(t, Exercise(session, util.NewRng(42), 500))
	assert.True(t, session.IsMounted())
	d := session.Table()[0]
	assert.Equal(t, d.Name, ExerciseFile)
	assert.False(t, d.Open)
	assert.Nil(t, session.Unmount())
}

func TestExerciseAtSizeLimit(t *testing.T) {
	t.Parallel()
	const maxSize = 4096
	session, s := newSession(t)
	defer s.Close()
	for seed := int64(1); seed <= 3; seed++ {
		assert.Nil(t, exercise(session, util.NewRng(seed), 2000, maxSize), seed)
		d := session.Table()[0]
		assert.True(t, d.Size <= maxSize, d)
		// Close enough to the limit that writes were being skipped
		assert.True(t, d.Size > maxSize-ExerciseMaxWriteSize, d)
	}
	assert.Nil(t, session.Unmount())
}
