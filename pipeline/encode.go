/*
NAME
  encode.go

DESCRIPTION
  encode.go implements the encode direction of the streaming pipeline:
  byte source -> [RS encode] -> framer -> synthesizer -> audio sink.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import (
	"fmt"
	"io"

	"github.com/ausocean/kcsmodem/codec/kcs"
	"github.com/ausocean/kcsmodem/mode"
	"github.com/ausocean/kcsmodem/rs"
	"github.com/ausocean/utils/logging"
)

// EncodeConfig configures one byte-source-to-audio-sink encode session.
type EncodeConfig struct {
	Params  mode.Params
	Opts    kcs.Options
	Leader  float64
	Trailer float64

	// RS enables the Reed-Solomon outer code (spec.md §4.F); RSK and
	// RSECCLen are the codec's message and parity lengths.
	RS       bool
	RSK      int
	RSECCLen int

	// Echo, if non-nil, receives a copy of the uncoded source bytes as
	// they are read: the original tool family's -e/--echo flag
	// (SPEC_FULL.md §7).
	Echo io.Writer

	Log logging.Logger
}

// Encode renders src to sink as a KCS/CUTS waveform: leader, then every
// source byte's on-air frame (optionally Reed-Solomon encoded first),
// then trailer. Encode pulls one byte at a time from src (or from the
// RS encoder's own internally-accumulated block), so memory stays
// bounded to O(frames_per_bit) per spec.md §5 regardless of src's
// length.
func Encode(src io.Reader, sink io.Writer, cfg EncodeConfig) error {
	if cfg.Echo != nil {
		src = io.TeeReader(src, cfg.Echo)
	}

	synth := kcs.New(cfg.Params, cfg.Opts)
	if cfg.Log != nil {
		cfg.Log.Info("encoding", "synth", synth.String(), "rs", cfg.RS)
	}

	if _, err := sink.Write(synth.Carrier(cfg.Leader)); err != nil {
		return fmt.Errorf("pipeline: writing leader: %w", err)
	}

	byteSrc := src
	var rsErr chan error
	if cfg.RS {
		codec, err := rs.NewGF256Codec(cfg.RSK, cfg.RSECCLen)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		pr, pw := io.Pipe()
		enc := rs.NewBlockEncoder(codec)
		rsErr = make(chan error, 1)
		go func() {
			err := enc.Encode(src, pw)
			pw.CloseWithError(err)
			rsErr <- err
		}()
		byteSrc = pr
	}

	buf := make([]byte, 1)
	for {
		n, err := byteSrc.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(synth.EncodeByte(buf[0])); werr != nil {
				return fmt.Errorf("pipeline: writing encoded byte: %w", werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("pipeline: reading source: %w", err)
		}
	}

	if cfg.RS {
		if err := <-rsErr; err != nil {
			return fmt.Errorf("pipeline: rs encode: %w", err)
		}
	}

	if _, err := sink.Write(synth.Carrier(cfg.Trailer)); err != nil {
		return fmt.Errorf("pipeline: writing trailer: %w", err)
	}
	if cfg.Log != nil {
		cfg.Log.Debug("encoding complete")
	}
	return nil
}
