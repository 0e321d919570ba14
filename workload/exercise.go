/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Feb 14 08:55:17 2019 mstenber
 * Last modified: Thu Feb 14 15:42:28 2019 mstenber
 * Edit time:     39 min
 *
 */

package workload

import (
	"bytes"
	"fmt"
	"math/rand"

	"github.com/fingon/go-hddfs/fileio"
	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
)

const (
	ExerciseFile         = "temp_file.txt"
	ExerciseIterations   = 10240
	ExerciseMaxWriteSize = 1024
)

type exerciseOp int

const (
	exerciseRead exerciseOp = iota
	exerciseAppend
	exerciseWrite
	exerciseSeek
	exerciseOps
)

// Exercise formats the device, and does random reads, writes,
// appends and seeks on a single file, comparing every result with an
// in-memory model of the file. The file is left closed but the
// device mounted.
func Exercise(session *fileio.Session, rng *rand.Rand, iterations int) error {
	return exercise(session, rng, iterations, hdd.MaxBlockSize)
}

// exercise keeps the file at most maxSize bytes long.
func exercise(session *fileio.Session, rng *rand.Rand, iterations, maxSize int) error {
	if err := session.Format(); err != nil {
		return err
	}
	if err := session.Mount(); err != nil {
		return err
	}
	h, err := session.Open(ExerciseFile)
	if err != nil {
		return err
	}
	var model []byte
	position := 0
	buf := make([]byte, maxSize)
	for i := 0; i < iterations; i++ {
		op := exerciseWrite
		if len(model) > 0 {
			op = exerciseOp(rng.Intn(int(exerciseOps)))
		}
		switch op {
		case exerciseRead:
			count := rng.Intn(len(model) + 1)
			mlog.Printf2("workload/exercise", "%d: read %d at %d", i, count, position)
			n, err := session.Read(h, buf[:count])
			if err != nil {
				return err
			}
			expected := count
			if position+count > len(model) {
				expected = len(model) - position
			}
			if n != expected {
				return fmt.Errorf("%d: short/long read %d != %d", i, n, expected)
			}
			if !bytes.Equal(buf[:n], model[position:position+n]) {
				return fmt.Errorf("%d: read data mismatch (%d at %d)", i, n, position)
			}
			position += n
		case exerciseAppend, exerciseWrite:
			ch := byte(rng.Intn(256))
			count := rng.Intn(ExerciseMaxWriteSize) + 1
			at := position
			if op == exerciseAppend {
				at = len(model)
			}
			if at+count > maxSize {
				mlog.Printf2("workload/exercise", "%d: skip write %d at %d", i, count, at)
				continue
			}
			mlog.Printf2("workload/exercise", "%d: write %d x %x at %d", i, count, ch, at)
			if at != position {
				if err = session.Seek(h, uint32(at)); err != nil {
					return err
				}
				position = at
			}
			data := bytes.Repeat([]byte{ch}, count)
			n, err := session.Write(h, data)
			if err != nil {
				return err
			}
			if n != count {
				return fmt.Errorf("%d: write %d != %d", i, n, count)
			}
			if position+count > len(model) {
				model = append(model, make([]byte, position+count-len(model))...)
			}
			copy(model[position:], data)
			position += count
		case exerciseSeek:
			position = rng.Intn(len(model) + 1)
			mlog.Printf2("workload/exercise", "%d: seek %d", i, position)
			if err = session.Seek(h, uint32(position)); err != nil {
				return err
			}
		}
	}
	d, err := session.Stat(h)
	if err != nil {
		return err
	}
	if int(d.Size) != len(model) || int(d.Cursor) != position {
		return fmt.Errorf("final state mismatch: %+v (model %d at %d)",
			d, len(model), position)
	}
	return session.Close(h)
}
