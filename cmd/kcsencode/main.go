/*
DESCRIPTION
  kcsencode renders a byte stream as a Kansas City Standard (or CUTS)
  audio waveform, either to a WAV file or to a live playback device.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package kcsencode is a command-line modulator: it turns an arbitrary
// byte stream into a KCS/CUTS audio waveform, written to a WAV file or
// played live through an audio output device.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/kcsmodem/codec/kcs"
	"github.com/ausocean/kcsmodem/device/liveaudio"
	"github.com/ausocean/kcsmodem/device/wavfile"
	"github.com/ausocean/kcsmodem/mode"
	"github.com/ausocean/kcsmodem/pipeline"
	"github.com/ausocean/utils/logging"
)

// Lumberjack rotation settings for the -log flag, matching cmd/rv's and
// cmd/speaker's file-rotation policy for their own long-running sessions.
const (
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
)

// Exit codes, per spec.md §6.
const (
	exitOK    = 0
	exitUsage = 1
	exitIO    = 2
)

// wavSampleRate is the sample rate written to a WAV output file; live
// playback instead negotiates a rate with the device.
const wavSampleRate = 9600

func main() {
	os.Exit(run())
}

func run() int {
	speed := flag.Int("s", 0, "speed mode: 0=300, 1=1200, 2=2400 baud")
	cuts := flag.Bool("a", false, "CUTS framing (7 data bits, 3 stop bits)")
	freqAdj := flag.Float64("f", 0, "base frequency adjustment (Hz)")
	device := flag.Int("d", -1, "output device index (system default if omitted)")
	monitor := flag.Int("m", -1, "monitor device index (no monitor if omitted)")
	list := flag.Bool("l", false, "list playback devices and exit")
	leader := flag.Float64("L", 1, "leader length in seconds")
	trailer := flag.Float64("T", 1, "trailer length in seconds")
	out := flag.String("o", "", "output WAV file path (live playback if omitted)")
	echo := flag.Bool("e", false, "echo source bytes to stdout while encoding")
	rsN := flag.Int("n", 0, "RS codeword size (0 disables RS)")
	rsK := flag.Int("k", 0, "RS message size")
	logPath := flag.String("log", "", "write logs to this file via lumberjack instead of stderr (for long-running live sessions)")
	flag.Parse()

	var logWriter io.Writer = os.Stderr
	if *logPath != "" {
		logWriter = &lumberjack.Logger{Filename: *logPath, MaxSize: logMaxSize, MaxBackups: logMaxBackup, MaxAge: logMaxAge}
	}
	log := logging.New(logging.Info, logWriter, true)

	if *list {
		devs, err := liveaudio.ListDevices(liveaudio.Playback)
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

	var src io.Reader = os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Error("failed to open input file", "error", err)
			return exitIO
		}
		defer f.Close()
		src = f
	}

	cfg := pipeline.EncodeConfig{
		Leader:   *leader,
		Trailer:  *trailer,
		RS:       *rsN > 0 && *rsK > 0,
		RSK:      *rsK,
		RSECCLen: *rsN - *rsK,
		Log:      log,
	}
	if *echo {
		cfg.Echo = os.Stdout
	}

	if *out != "" {
		return encodeToFile(*out, src, baud, framing, *freqAdj, cfg, log)
	}
	return encodeLive(*device, *monitor, src, baud, framing, *freqAdj, cfg, log)
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

// encodeToFile renders the waveform into an in-memory 8-bit unsigned PCM
// buffer and writes it as a WAV file, per spec.md §6's encoder format.
func encodeToFile(path string, src io.Reader, baud mode.Baud, framing mode.Framing, freqAdj float64, cfg pipeline.EncodeConfig, log logging.Logger) int {
	p, err := mode.New(baud, framing, wavSampleRate, freqAdj)
	if err != nil {
		log.Error("invalid mode parameters", "error", err)
		return exitUsage
	}
	cfg.Params = p
	cfg.Opts = kcs.DefaultOptions(kcs.Format8U)

	f, err := os.Create(path)
	if err != nil {
		log.Error("failed to create output file", "error", err)
		return exitIO
	}
	defer f.Close()

	var pcmBuf []byte
	w := writerFunc(func(b []byte) (int, error) {
		pcmBuf = append(pcmBuf, b...)
		return len(b), nil
	})
	if err := pipeline.Encode(src, w, cfg); err != nil {
		log.Error("encode failed", "error", err)
		return exitIO
	}

	format := wavfile.Format{SampleRate: wavSampleRate, Channels: 1, BitDepth: 8}
	if err := wavfile.Encode(f, format, pcmBuf); err != nil {
		log.Error("failed to write wav file", "error", err)
		return exitIO
	}
	return exitOK
}

// encodeLive plays the waveform through a negotiated output device,
// optionally mirroring it to a monitor device via pipeline.Monitor.
func encodeLive(deviceIdx, monitorIdx int, src io.Reader, baud mode.Baud, framing mode.Framing, freqAdj float64, cfg pipeline.EncodeConfig, log logging.Logger) int {
	dev, err := liveaudio.Open(deviceIdx, liveaudio.Playback, wavSampleRate, 1, 16, log)
	if err != nil {
		log.Error("failed to open output device", "error", err)
		return exitIO
	}
	defer dev.Close()

	p, err := mode.New(baud, framing, dev.SampleRate(), freqAdj)
	if err != nil {
		log.Error("invalid mode parameters", "error", err)
		return exitUsage
	}
	cfg.Params = p
	cfg.Opts = kcs.DefaultOptions(kcs.Format16LE)

	sink := io.Writer(dev)
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
		sink = teeMonitor{w: dev, mon: mon}
	}

	if err := pipeline.Encode(src, sink, cfg); err != nil {
		log.Error("encode failed", "error", err)
		return exitIO
	}
	return exitOK
}

// teeMonitor mirrors every write to the monitor mailbox and then
// forwards it to the primary device. A monitor write failure never fails
// the primary path, but a full mailbox blocks the write until the
// monitor drains a frame (pipeline.Monitor.Send never drops).
type teeMonitor struct {
	w   io.Writer
	mon *pipeline.Monitor
}

func (t teeMonitor) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	t.mon.Send(cp)
	return t.w.Write(p)
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
