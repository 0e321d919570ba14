/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 08:40:02 2019 mstenber
 * Last modified: Tue Feb 12 08:52:37 2019 mstenber
 * Edit time:     4 min
 *
 */

package util

import "sync"

// MutexLocked is sync.Mutex with a convenience method for the
// common case:
//
//	defer self.lock.Locked()()
type MutexLocked sync.Mutex

func (self *MutexLocked) Locked() (unlock func()) {
	mut := (*sync.Mutex)(self)
	mut.Lock()
	return mut.Unlock
}
