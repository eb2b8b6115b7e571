/*
DESCRIPTION
  kcsrs is a standalone Reed-Solomon pass-through: it applies or removes
  the modem's outer RS(n, k) code to stdin, writing to stdout. It exists
  independently of kcsencode/kcsdecode, matching rs_encode.py/
  rs_decode.py's genuinely standalone existence as separate tools.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package kcsrs applies or removes the modem's Reed-Solomon outer code
// standalone, reading stdin and writing stdout.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/ausocean/kcsmodem/rs"
	"github.com/ausocean/utils/logging"
)

const (
	exitOK    = 0
	exitUsage = 1
	exitIO    = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	n := flag.Int("n", 8, "RS codeword size")
	k := flag.Int("k", 4, "RS message size")
	decode := flag.Bool("d", false, "decode instead of encode")
	flag.Parse()

	log := logging.New(logging.Info, os.Stderr, true)

	codec, err := rs.NewGF256Codec(*k, *n-*k)
	if err != nil {
		log.Error("invalid RS parameters", "error", err)
		return exitUsage
	}

	if *decode {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		go func() {
			<-interrupt
			cancel()
		}()

		diag := make(chan *rs.BlockError, 4)
		go func() {
			for e := range diag {
				log.Warning("uncorrectable RS block", "offset", e.Offset, "error", e.Err)
			}
		}()

		dec := rs.NewBlockDecoder(codec)
		if err := dec.Decode(ctx, os.Stdin, os.Stdout, diag); err != nil {
			log.Error("rs decode failed", "error", err)
			return exitIO
		}
		return exitOK
	}

	enc := rs.NewBlockEncoder(codec)
	if err := enc.Encode(os.Stdin, os.Stdout); err != nil {
		log.Error("rs encode failed", "error", err)
		return exitIO
	}
	return exitOK
}
