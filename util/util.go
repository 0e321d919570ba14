/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 09:13:51 2019 mstenber
 * Last modified: Thu Feb 14 15:31:08 2019 mstenber
 * Edit time:     6 min
 *
 */

package util

import "encoding/binary"

// Uint32Key returns prefix followed by n in big-endian order. Handy as
// a database key, as the ordering of keys follows ordering of values.
func Uint32Key(prefix []byte, n uint32) []byte {
	k := make([]byte, len(prefix)+4)
	copy(k, prefix)
	binary.BigEndian.PutUint32(k[len(prefix):], n)
	return k
}

func IMin(a, b int) int {
	if a < b {
		return a
	}
	return b
}
