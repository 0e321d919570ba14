/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 09:07:30 2019 mstenber
 * Last modified: Fri Feb 15 10:12:02 2019 mstenber
 * Edit time:     5 min
 *
 */

package util

import (
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/fingon/go-hddfs/mlog"
)

// GetSeededRng returns random number generator seeded either from
// SEED environment variable, or from current time. The seed is
// logged so that failing random runs can be reproduced.
func GetSeededRng() *rand.Rand {
	seedvalue := time.Now().UnixNano()
	if seed := os.Getenv("SEED"); seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			log.Panic(err)
		}
		seedvalue = v
	}
	log.Printf("Seed: %v (use SEED= to fix)", seedvalue)
	return NewRng(seedvalue)
}

func NewRng(seedvalue int64) *rand.Rand {
	mlog.Printf2("util/random", "NewRng %v", seedvalue)
	return rand.New(rand.NewSource(seedvalue))
}
