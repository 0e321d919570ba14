/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 15:40:36 2019 mstenber
 * Last modified: Thu Feb 14 15:35:50 2019 mstenber
 * Edit time:     11 min
 *
 */

package workload

import (
	"errors"
	"fmt"
	"io"

	"github.com/fingon/go-hddfs/fileio"
	"github.com/fingon/go-hddfs/mlog"
)

var ErrNotFound = errors.New("no such file")

func exists(session *fileio.Session, name string) bool {
	for _, d := range session.Table() {
		if !d.IsFree() && d.Name == name {
			return true
		}
	}
	return false
}

// Extract mounts the device and copies the named file to w. Missing
// files are not created; the file table is written back as it was.
func Extract(session *fileio.Session, name string, w io.Writer) (n int64, err error) {
	mlog.Printf2("workload/extract", "Extract %s", name)
	if err = session.Mount(); err != nil {
		return
	}
	defer func() {
		if uerr := session.Unmount(); err == nil {
			err = uerr
		}
	}()
	if !exists(session, name) {
		err = fmt.Errorf("extract %q: %w", name, ErrNotFound)
		return
	}
	f, err := session.OpenFile(name)
	if err != nil {
		return
	}
	n, err = io.Copy(w, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return
}
