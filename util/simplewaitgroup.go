/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 08:53:10 2019 mstenber
 * Last modified: Thu Feb 14 11:20:45 2019 mstenber
 * Edit time:     3 min
 *
 */

package util

import "sync"

// SimpleWaitGroup is a WaitGroup that knows how to start the
// goroutines it waits for.
type SimpleWaitGroup struct {
	sync.WaitGroup
}

func (self *SimpleWaitGroup) Go(cb func()) {
	self.Add(1)
	go func() {
		defer self.Done()
		cb()
	}()
}
