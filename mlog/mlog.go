/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 09:40:27 2019 mstenber
 * Last modified: Fri Feb 15 09:58:14 2019 mstenber
 * Edit time:     47 min
 *
 */

// mlog is maybe-log, or Markus' log. It is a small wrapper around
// the standard 'log' (only Printf-style output is provided) with two
// twists:
//
// - what is printed is chosen by a regular expression matched against
// the source file of the caller. It comes from MLOG environment
// variable, -mlog flag, or SetPattern. By default nothing is printed,
// and disabled output costs next to nothing.
//
// - call stack depth is used to indent the output, so nested
// operations (e.g. file write -> block read -> transport) read like a
// trace.
package mlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-hddfs/util/gid"
)

const (
	stateUninitialized int32 = iota
	stateInitializing
	stateDisabled
	stateEnabled
)

const maxDepth = 100

// status is accessed atomically; everything in logState only with
// mutex held.
var status = stateUninitialized

var mutex sync.Mutex

type logState struct {
	logger   *log.Logger
	pattern  string
	re       *regexp.Regexp
	file2Hit map[string]bool
	minDepth int
	callers  []uintptr
}

var state = logState{logger: log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)}

var flagPattern *string

// DumpGoroutineIds controls whether the goroutine id is included in
// the output lines.
var DumpGoroutineIds = true

func init() {
	flagPattern = flag.String("mlog", "", "Enable logging based on the given file regular expression")
	Reset()
}

// Reset forgets the cached pattern decisions and the observed minimum
// call depth. Next log call re-initializes from the environment (unless
// SetPattern has been used since).
func Reset() {
	mutex.Lock()
	defer mutex.Unlock()
	atomic.StoreInt32(&status, stateUninitialized)
	state.minDepth = maxDepth
	state.callers = make([]uintptr, maxDepth)
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	return atomic.LoadInt32(&status) != stateDisabled
}

// SetLogger overrides where the output goes. The returned function
// restores the previous logger.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := state.logger
	state.logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		state.logger = old
	}
}

// SetPattern sets the pattern by hand, overriding environment and
// flag. The returned function restores the previous pattern.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := state.pattern
	setPattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		setPattern(old)
	}
}

func setPattern(p string) {
	state.pattern = p
	if p == "" {
		atomic.StoreInt32(&status, stateDisabled)
		return
	}
	state.re = regexp.MustCompile(p)
	state.file2Hit = make(map[string]bool)
	atomic.StoreInt32(&status, stateEnabled)
}

func initialize() {
	if !atomic.CompareAndSwapInt32(&status, stateUninitialized, stateInitializing) {
		return
	}
	p := os.Getenv("MLOG")
	if *flagPattern != "" {
		p = *flagPattern
	}
	setPattern(p)
}

// Printf is drop-in replacement of log.Printf. It has to call
// runtime.Caller to find out the file if mlog is enabled at all;
// Printf2 avoids that.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 is the preferred variant; caller provides the (partial)
// file name matched against the pattern.
func Printf2(file string, format string, args ...interface{}) {
	st := atomic.LoadInt32(&status)
	if st == stateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if st < stateDisabled {
		initialize()
		if atomic.LoadInt32(&status) != stateEnabled {
			return
		}
	}
	hit, ok := state.file2Hit[file]
	if !ok {
		hit = state.re.MatchString(file)
		state.file2Hit[file] = hit
	}
	if !hit {
		return
	}
	depth := runtime.Callers(1, state.callers)
	if depth < state.minDepth {
		state.minDepth = depth
	}
	depth -= state.minDepth
	if depth > 0 {
		format = strings.Repeat(".", depth) + format
	}
	if DumpGoroutineIds {
		format = fmt.Sprintf("%8d %s", gid.GetGoroutineID(), format)
	}
	state.logger.Printf(format, args...)
}
