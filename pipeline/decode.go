/*
NAME
  decode.go

DESCRIPTION
  decode.go implements the decode direction of the streaming pipeline:
  audio source -> extractor -> demodulator -> deframer -> [RS decode] ->
  byte sink.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/ausocean/kcsmodem/codec/pcm"
	"github.com/ausocean/kcsmodem/demod/fft"
	"github.com/ausocean/kcsmodem/demod/signchange"
	"github.com/ausocean/kcsmodem/frame"
	"github.com/ausocean/kcsmodem/mode"
	"github.com/ausocean/kcsmodem/rs"
	"github.com/ausocean/utils/logging"
)

// chunkFrames bounds how many audio frames are pulled from the source
// and normalized per read, keeping per-stage memory a small bounded
// multiple of the frame stride rather than the whole recording.
const chunkFrames = 4096

// DecodeConfig configures one audio-source-to-byte-sink decode session.
type DecodeConfig struct {
	Params mode.Params

	Demodulator DemodKind

	// HiThreshold tunes demod/signchange.Demod (Open Question (a)); zero
	// selects signchange.DefaultHiThreshold.
	HiThreshold byte

	// BinTolerance tunes demod/fft.Demod; zero selects a tolerance of 1.
	BinTolerance int
	// CarrierThreshold and MatchThreshold tune frame.SymbolAssembler
	// (Open Question (c)); zero selects the package defaults.
	CarrierThreshold float64
	MatchThreshold   float64

	RS       bool
	RSK      int
	RSECCLen int
	// Diag, if non-nil, receives an *rs.BlockError for every
	// uncorrectable RS block without aborting the stream.
	Diag chan<- *rs.BlockError

	Log logging.Logger
}

// Decode reads raw PCM frames from src (format describes their
// geometry), demodulates and deframes them into bytes (optionally
// Reed-Solomon corrected), and writes the result to sink. Decode reads
// in bounded chunks and never holds more than chunkFrames frames plus
// each stage's own small internal buffer, matching spec.md §5's bounded-
// memory requirement. On ctx cancellation Decode stops reading and
// flushes any in-flight RS block before returning ctx.Err(), per
// spec.md §7's ErrUserInterrupt handling.
func Decode(ctx context.Context, src io.Reader, format AudioFormat, sink io.Writer, cfg DecodeConfig) error {
	stride := format.stride()
	if stride <= 0 {
		return fmt.Errorf("pipeline: invalid audio format %+v", format)
	}

	var sinkW io.Writer = sink
	var rsPW *io.PipeWriter
	var rsErr chan error
	if cfg.RS {
		codec, err := rs.NewGF256Codec(cfg.RSK, cfg.RSECCLen)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		pr, pw := io.Pipe()
		dec := rs.NewBlockDecoder(codec)
		rsPW = pw
		sinkW = pw
		rsErr = make(chan error, 1)
		go func() { rsErr <- dec.Decode(ctx, pr, sink, cfg.Diag) }()
	}

	push, err := decodeStage(cfg, format)
	if err != nil {
		return err
	}

	buf := make([]byte, chunkFrames*stride)
	var loopErr error
loop:
	for {
		select {
		case <-ctx.Done():
			loopErr = ctx.Err()
			break loop
		default:
		}

		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			out, perr := push(buf[:n])
			if perr != nil {
				loopErr = perr
				break loop
			}
			if len(out) > 0 {
				if _, werr := sinkW.Write(out); werr != nil {
					loopErr = fmt.Errorf("pipeline: writing decoded bytes: %w", werr)
					break loop
				}
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			loopErr = fmt.Errorf("pipeline: reading audio source: %w", rerr)
			break
		}
	}

	if cfg.RS {
		rsPW.Close()
		if err := <-rsErr; err != nil && loopErr == nil {
			loopErr = fmt.Errorf("pipeline: rs decode: %w", err)
		}
	}
	return loopErr
}

// decodeStage builds the extractor+demodulator+deframer function for
// one chunk of raw audio, selected by cfg.Demodulator.
func decodeStage(cfg DecodeConfig, format AudioFormat) (func([]byte) ([]byte, error), error) {
	switch cfg.Demodulator {
	case FFT:
		tol := cfg.BinTolerance
		if tol == 0 {
			tol = 1
		}
		d := fft.New(cfg.Params, tol)
		// One bit spans four FFT windows at 300 baud and one otherwise.
		symLen := fft.WindowLen(cfg.Params)
		if cfg.Params.Baud == mode.Baud300 {
			symLen *= 4
		}
		sa := frame.NewSymbolAssembler(cfg.Params, symLen)
		if cfg.CarrierThreshold > 0 {
			sa.CarrierThreshold = cfg.CarrierThreshold
		}
		if cfg.MatchThreshold > 0 {
			sa.MatchThreshold = cfg.MatchThreshold
		}
		return func(chunk []byte) ([]byte, error) {
			norm, nf, err := normalize(chunk, format, cfg.Params.SampleRate)
			if err != nil {
				return nil, err
			}
			samples := extractFloat(norm, nf.BytesPerSample, nf.Channels)
			symbols := d.Feed(samples)
			var out []byte
			for _, s := range symbols {
				out = append(out, sa.Push(s)...)
			}
			return out, nil
		}, nil

	default:
		ht := cfg.HiThreshold
		if ht == 0 {
			ht = signchange.DefaultHiThreshold
		}
		d := signchange.New(ht)
		ba := frame.NewBitAssembler(cfg.Params)
		return func(chunk []byte) ([]byte, error) {
			norm, nf, err := normalize(chunk, format, cfg.Params.SampleRate)
			if err != nil {
				return nil, err
			}
			bits := d.Feed(norm, nf.BytesPerSample, nf.Channels)
			var out []byte
			for _, bit := range bits {
				out = append(out, ba.Push(int(bit))...)
			}
			return out, nil
		}, nil
	}
}

// normalize reduces a chunk of raw PCM to mono at targetRate, reusing
// codec/pcm.StereoToMono/Resample unmodified for the 16/32-bit formats
// they support (ALSA's native formats, per device/liveaudio). 8/24-bit
// WAV-only formats are passed through unchanged: demod/signchange.Feed
// and the extractor above already take the leftmost channel directly
// regardless of width, so no separate down-mix is required for them.
func normalize(raw []byte, f AudioFormat, targetRate uint) ([]byte, AudioFormat, error) {
	if f.BytesPerSample != 2 && f.BytesPerSample != 4 {
		return raw, f, nil
	}
	sFmt := pcm.S16_LE
	if f.BytesPerSample == 4 {
		sFmt = pcm.S32_LE
	}
	buf := pcm.Buffer{
		Format: pcm.BufferFormat{SFormat: sFmt, Rate: f.SampleRate, Channels: uint(f.Channels)},
		Data:   raw,
	}
	if f.Channels > 1 {
		var err error
		buf, err = pcm.StereoToMono(buf)
		if err != nil {
			return nil, f, fmt.Errorf("pipeline: mixing to mono: %w", err)
		}
	}
	if targetRate != 0 && buf.Format.Rate != targetRate && buf.Format.Rate%targetRate == 0 {
		var err error
		buf, err = pcm.Resample(buf, targetRate)
		if err != nil {
			return nil, f, fmt.Errorf("pipeline: resampling: %w", err)
		}
	}
	out := AudioFormat{
		BytesPerSample: f.BytesPerSample,
		Channels:       int(buf.Format.Channels),
		SampleRate:     buf.Format.Rate,
	}
	return buf.Data, out, nil
}
