/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan 11 07:40:22 2018 mstenber
 * Last modified: Thu Feb 14 17:08:31 2019 mstenber
 * Edit time:     31 min
 *
 */

package util

import "sync"

const DefaultLimit = 64

// Limiter ensures that at most Limit things occur at same time. It
// is essentially semaphore with trivial API (defer Limited()()).
type Limiter struct {
	// Limit defaults to DefaultLimit
	Limit int

	lock    MutexLocked
	cond    sync.Cond
	running int
}

// Limited reserves an execution slot, waiting for one if need be. The
// returned function releases it.
func (self *Limiter) Limited() func() {
	defer self.lock.Locked()()
	if self.cond.L == nil {
		if self.Limit <= 0 {
			self.Limit = DefaultLimit
		}
		self.cond.L = (*sync.Mutex)(&self.lock)
	}
	for self.running >= self.Limit {
		self.cond.Wait()
	}
	self.running++
	released := false
	return func() {
		defer self.lock.Locked()()
		if released {
			return
		}
		released = true
		self.running--
		self.cond.Signal()
	}
}

func (self *Limiter) Running() int {
	defer self.lock.Locked()()
	return self.running
}
