/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Feb 14 11:05:40 2019 mstenber
 * Last modified: Thu Feb 14 16:52:19 2019 mstenber
 * Edit time:     22 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fingon/go-hddfs/codec"
	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/server"
	"github.com/fingon/go-hddfs/storage"
	"github.com/fingon/go-hddfs/storage/factory"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [STORAGEDIR]\n", os.Args[0])
		flag.PrintDefaults()
	}
	address := flag.String("address", hdd.DefaultAddress, "Address to listen at")
	family := flag.String("family", hdd.DefaultFamily, "Address family to listen at")
	backendp := flag.String("backend", "inmemory",
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	password := flag.String("password", "", "Password (empty = no encryption)")
	salt := flag.String("salt", "salt", "Salt")
	compression := flag.String("compression", "lz4", "Compression (plain, lz4, snappy)")
	cachesize := flag.Int("cachesize", 1000, "Number of blocks to cache")
	maxblocksize := flag.Uint("maxblocksize", hdd.MaxBlockSize, "Largest block accepted")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")
	flag.Parse()

	if *verbose {
		mlog.SetPattern(".")
	}
	storedir := flag.Arg(0)
	if *backendp != "inmemory" && storedir == "" {
		flag.Usage()
		os.Exit(1)
	}
	ct, err := codec.ParseCompressionType(*compression)
	if err != nil {
		log.Fatal(err)
	}

	beconf := storage.BackendConfiguration{Directory: storedir, CacheSize: *cachesize}
	conf := factory.StorageConfiguration{BackendConfiguration: beconf,
		BackendName: *backendp, Password: *password, Salt: *salt,
		Compression: ct}
	st, err := factory.NewStorage(conf)
	if err != nil {
		log.Fatal(err)
	}
	serv := server.Server{Family: *family, Address: *address, Storage: st,
		MaxBlockSize: uint32(*maxblocksize)}.Init()
	log.Printf("Serving %s storage at %s", *backendp, serv.Addr())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Printf("Got %v, shutting down", sig)

	// Close things in order: no more clients, then storage
	serv.Close()
	if err = st.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("%d connections, %d commands, %d failures",
		serv.Connections.Get(), serv.Commands.Get(), serv.Failures.Get())
}
