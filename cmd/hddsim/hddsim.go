/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Feb 14 10:22:13 2019 mstenber
 * Last modified: Thu Feb 14 16:41:02 2019 mstenber
 * Edit time:     34 min
 *
 */

// hddsim is the client side driver: it runs workload files against
// the block storage service, extracts files from it, or runs the
// randomized self test.
package main

import (
	"bytes"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/fingon/go-hddfs/fileio"
	"github.com/fingon/go-hddfs/hdd"
	"github.com/fingon/go-hddfs/mlog"
	"github.com/fingon/go-hddfs/transport"
	"github.com/fingon/go-hddfs/util"
	"github.com/fingon/go-hddfs/workload"
	"github.com/timtadh/getopt"
)

const usageMessage = `Usage: %s [-h] [-v] [-u] [-l <logfile>] [-x <file>] [-a <ip>] [-p <port>] [workload]

  -h          this message
  -v          verbose (debug) logging
  -u          run the randomized self test
  -l <file>   log to file instead of stderr
  -x <file>   extract file from the device to a new local file
  -a <ip>     service address (default %s)
  -p <port>   service port (default %d)
`

func usage(code int) {
	fmt.Fprintf(os.Stderr, usageMessage, os.Args[0], hdd.DefaultHost, hdd.DefaultPort)
	os.Exit(code)
}

// extract reads the whole file from the device first; the local file
// is created only once there is something to put in it.
func extract(session *fileio.Session, name string) error {
	var buf bytes.Buffer
	n, err := workload.Extract(session, name, &buf)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Printf("Extracted %s (%d bytes)", name, n)
	return nil
}

func runWorkload(session *fileio.Session, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	sim := workload.Simulator{Session: session}.Init()
	err = sim.Run(f)
	log.Printf("%d lines, %d bytes written, %d bytes read",
		sim.Lines, sim.BytesWritten, sim.BytesRead)
	return err
}

func main() {
	args, optargs, err := getopt.GetOpt(os.Args[1:], "hvul:x:a:p:", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage(3)
	}
	host := hdd.DefaultHost
	port := hdd.DefaultPort
	selfTest := false
	extractName := ""
	for _, oa := range optargs {
		switch oa.Opt() {
		case "-h":
			usage(0)
		case "-v":
			mlog.SetPattern(".")
		case "-u":
			selfTest = true
		case "-l":
			f, err := os.OpenFile(oa.Arg(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
			if err != nil {
				log.Fatal(err)
			}
			defer f.Close()
			logger := log.New(f, "", log.LstdFlags|log.Lmicroseconds)
			mlog.SetLogger(logger)
			log.SetOutput(f)
		case "-x":
			extractName = oa.Arg()
		case "-a":
			host = oa.Arg()
		case "-p":
			port, err = strconv.Atoi(oa.Arg())
			if err != nil || port <= 0 || port > 65535 {
				fmt.Fprintf(os.Stderr, "Invalid port '%v'\n", oa.Arg())
				usage(5)
			}
		default:
			fmt.Fprintf(os.Stderr, "Unknown flag '%v'\n", oa.Opt())
			usage(3)
		}
	}
	if !selfTest && extractName == "" && len(args) != 1 {
		usage(1)
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	client := transport.Client{Configuration: transport.Configuration{Address: address}}.Init()
	session, err := fileio.NewSession(client, fileio.Configuration{})
	if err != nil {
		log.Fatal(err)
	}
	switch {
	case selfTest:
		err = workload.Exercise(session, util.GetSeededRng(), workload.ExerciseIterations)
		if err == nil {
			err = session.Unmount()
		}
		if err == nil {
			log.Printf("Self test passed")
		}
	case extractName != "":
		err = extract(session, extractName)
	default:
		err = runWorkload(session, args[0])
	}
	if err != nil {
		client.Close()
		log.Fatal(err)
	}
}
