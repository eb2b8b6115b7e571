/*
DESCRIPTION
  kcsdecode demodulates a Kansas City Standard (or CUTS) audio waveform
  back into the original byte stream, reading from a WAV file or a live
  capture device.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package kcsdecode is a command-line demodulator: it turns a KCS/CUTS
// audio waveform, read from a WAV file or captured live, back into its
// original byte stream.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/kcsmodem/device/liveaudio"
	"github.com/ausocean/kcsmodem/device/wavfile"
	"github.com/ausocean/kcsmodem/mode"
	"github.com/ausocean/kcsmodem/pipeline"
	"github.com/ausocean/kcsmodem/rs"
	"github.com/ausocean/utils/logging"
)

const (
	exitOK    = 0
	exitUsage = 1
	exitIO    = 2
)

// Lumberjack rotation settings for the -log flag, matching cmd/rv's and
// cmd/speaker's file-rotation policy for their own long-running sessions.
const (
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
)

// liveSampleRate is the rate negotiated for a live capture session. WAV
// input instead decodes at its own declared rate (spec.md §6).
const liveSampleRate = 9600

func main() {
	os.Exit(run())
}

func run() int {
	speed := flag.Int("s", 0, "speed mode: 0=300, 1=1200, 2=2400 baud")
	cuts := flag.Bool("a", false, "CUTS framing (7 data bits, 3 stop bits)")
	freqAdj := flag.Float64("f", 0, "base frequency adjustment (Hz)")
	device := flag.Int("d", -1, "input device index (system default if omitted)")
	monitor := flag.Int("m", -1, "monitor device index (no monitor if omitted)")
	list := flag.Bool("l", false, "list capture devices and exit")
	binary := flag.Bool("b", false, "binary output (default: print the decoded bytes)")
	keepNul := flag.Bool("z", false, "include NUL bytes in output")
	out := flag.String("o", "", "output file path (stdout if omitted)")
	rsN := flag.Int("n", 0, "RS codeword size (0 disables RS)")
	rsK := flag.Int("k", 0, "RS message size")
	useFFT := flag.Bool("x", false, "use the FFT-window demodulator instead of sign-change")
	logPath := flag.String("log", "", "write logs to this file via lumberjack instead of stderr (for long-running live sessions)")
	flag.Parse()

	var logWriter io.Writer = os.Stderr
	if *logPath != "" {
		logWriter = &lumberjack.Logger{Filename: *logPath, MaxSize: logMaxSize, MaxBackups: logMaxBackup, MaxAge: logMaxAge}
	}
	log := logging.New(logging.Info, logWriter, true)

	if *list {
		devs, err := liveaudio.ListDevices(liveaudio.Capture)
		if err != nil {
			log.Error("failed to list devices", "error", err)
			return exitIO
		}
		for _, d := range devs {
			fmt.Printf("%d: %s\n", d.Index, d.Title)
		}
		return exitOK
	}

	baud, err := baudFromSpeed(*speed)
	if err != nil {
		log.Error("invalid speed mode", "error", err)
		return exitUsage
	}
	framing := mode.KCS
	if *cuts {
		framing = mode.CUTS
	}

	var sink io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Error("failed to create output file", "error", err)
			return exitIO
		}
		defer f.Close()
		sink = f
	}
	if !*binary {
		sink = textSink{w: sink}
	}
	if !*keepNul {
		sink = nulFilter{w: sink}
	}

	cfg := pipeline.DecodeConfig{
		RS:       *rsN > 0 && *rsK > 0,
		RSK:      *rsK,
		RSECCLen: *rsN - *rsK,
		Log:      log,
	}
	if *useFFT {
		cfg.Demodulator = pipeline.FFT
	}
	if cfg.RS {
		diag := make(chan *rs.BlockError, 4)
		cfg.Diag = diag
		go func() {
			for e := range diag {
				log.Warning("uncorrectable RS block", "offset", e.Offset, "error", e.Err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Info("interrupted, shutting down")
		cancel()
	}()

	if flag.NArg() > 0 {
		return decodeFile(ctx, flag.Arg(0), baud, framing, *freqAdj, cfg, sink, log)
	}
	return decodeLive(ctx, *device, *monitor, baud, framing, *freqAdj, cfg, sink, log)
}

func baudFromSpeed(speed int) (mode.Baud, error) {
	switch speed {
	case 0:
		return mode.Baud300, nil
	case 1:
		return mode.Baud1200, nil
	case 2:
		return mode.Baud2400, nil
	default:
		return 0, fmt.Errorf("unsupported speed mode %d", speed)
	}
}

// decodeFile reads a WAV file of any declared bit depth/channel count
// (spec.md §6) and demodulates it to sink.
func decodeFile(ctx context.Context, path string, baud mode.Baud, framing mode.Framing, freqAdj float64, cfg pipeline.DecodeConfig, sink io.Writer, log logging.Logger) int {
	f, err := os.Open(path)
	if err != nil {
		log.Error("failed to open input file", "error", err)
		return exitIO
	}
	defer f.Close()

	wf, pcm, err := wavfile.Decode(f)
	if err != nil {
		log.Error("failed to decode wav file", "error", err)
		return exitIO
	}

	p, err := mode.New(baud, framing, uint(wf.SampleRate), freqAdj)
	if err != nil {
		log.Error("invalid mode parameters", "error", err)
		return exitUsage
	}
	cfg.Params = p

	format := pipeline.AudioFormat{
		BytesPerSample: wf.BytesPerSample(),
		Channels:       wf.Channels,
		SampleRate:     uint(wf.SampleRate),
	}
	if err := pipeline.Decode(ctx, bytes.NewReader(pcm), format, sink, cfg); err != nil {
		log.Error("decode failed", "error", err)
		return exitIO
	}
	return exitOK
}

// decodeLive captures from a negotiated input device, optionally
// mirroring the raw audio to a monitor device, and demodulates live.
func decodeLive(ctx context.Context, deviceIdx, monitorIdx int, baud mode.Baud, framing mode.Framing, freqAdj float64, cfg pipeline.DecodeConfig, sink io.Writer, log logging.Logger) int {
	dev, err := liveaudio.Open(deviceIdx, liveaudio.Capture, liveSampleRate, 1, 16, log)
	if err != nil {
		log.Error("failed to open input device", "error", err)
		return exitIO
	}
	defer dev.Close()

	p, err := mode.New(baud, framing, dev.SampleRate(), freqAdj)
	if err != nil {
		log.Error("invalid mode parameters", "error", err)
		return exitUsage
	}
	cfg.Params = p

	var src io.Reader = dev
	if monitorIdx >= 0 {
		mdev, err := liveaudio.Open(monitorIdx, liveaudio.Playback, dev.SampleRate(), 1, 16, log)
		if err != nil {
			log.Error("failed to open monitor device", "error", err)
			return exitIO
		}
		defer mdev.Close()

		mon := pipeline.NewMonitor(8, log)
		go func() {
			for frame := range mon.Frames() {
				if _, err := mdev.Write(frame); err != nil {
					log.Warning("monitor write failed", "error", err)
				}
			}
		}()
		src = teeReader{r: src, mon: mon}
	}

	format := pipeline.AudioFormat{BytesPerSample: 2, Channels: 1, SampleRate: dev.SampleRate()}
	if err := pipeline.Decode(ctx, src, format, sink, cfg); err != nil {
		log.Error("decode failed", "error", err)
		return exitIO
	}
	return exitOK
}

// teeReader mirrors every chunk read from r to the monitor mailbox.
type teeReader struct {
	r   io.Reader
	mon *pipeline.Monitor
}

func (t teeReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		cp := make([]byte, n)
		copy(cp, p[:n])
		t.mon.Send(cp)
	}
	return n, err
}

// textSink is the decoder's default (non -b) output mode: bytes outside
// the ASCII range are rendered as \xHH escapes rather than written raw,
// matching the original tool family's "ASCII mode" (backslash-replace
// on invalid bytes).
type textSink struct{ w io.Writer }

func (t textSink) Write(p []byte) (int, error) {
	var out bytes.Buffer
	for _, b := range p {
		if b < 0x80 {
			out.WriteByte(b)
		} else {
			fmt.Fprintf(&out, "\\x%02x", b)
		}
	}
	if _, err := t.w.Write(out.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// nulFilter drops NUL bytes unless -z was given.
type nulFilter struct{ w io.Writer }

func (n nulFilter) Write(p []byte) (int, error) {
	filtered := make([]byte, 0, len(p))
	for _, b := range p {
		if b != 0 {
			filtered = append(filtered, b)
		}
	}
	if _, err := n.w.Write(filtered); err != nil {
		return 0, err
	}
	return len(p), nil
}
