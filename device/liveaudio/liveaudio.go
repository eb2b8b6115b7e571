/*
NAME
  liveaudio.go

DESCRIPTION
  liveaudio.go provides live capture and playback against a local ALSA
  sound card for the streaming encode/decode sessions: device
  enumeration, negotiation of the synthesizer's own sample
  rate/channels/bit depth, and blocking Read/Write against the
  negotiated device.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package liveaudio provides live ALSA audio capture and playback for
// the modem's streaming encode/decode sessions. Unlike the teacher's
// device/alsa, which records continuously into a ring buffer for
// indefinite-duration field capture, this package negotiates a device
// once and exposes it as a plain blocking io.Reader/io.Writer: the
// pipeline package (§5) does its own lazy, bounded-memory pulling and
// needs nothing more than a device that blocks until a period's worth of
// samples is ready.
package liveaudio

import (
	"errors"
	"fmt"
	"time"

	yalsa "github.com/yobert/alsa"

	"github.com/ausocean/utils/logging"
)

// Direction selects whether a Device is opened for capture (recording)
// or playback.
type Direction int

const (
	Capture Direction = iota
	Playback
)

func (d Direction) String() string {
	if d == Playback {
		return "playback"
	}
	return "capture"
}

// period is the target ALSA period duration; a 50ms period is the same
// low-latency compromise the teacher's device/alsa.open negotiates.
const period = 50 * time.Millisecond

// ErrNoDevice is returned by Open when no ALSA device matching the
// requested direction (and index) is found. ListDevices instead returns
// an empty list.
var ErrNoDevice = errors.New("liveaudio: no matching ALSA device found")

// Info describes one enumerated ALSA device, for the CLI's -l flag.
type Info struct {
	Index int
	Title string
}

// ListDevices enumerates the sound cards present on the system and
// returns every PCM device matching dir (Capture devices have
// dev.Record set, Playback devices have dev.Play set).
func ListDevices(dir Direction) ([]Info, error) {
	cards, err := yalsa.OpenCards()
	if err != nil {
		return nil, fmt.Errorf("liveaudio: opening sound cards: %w", err)
	}
	defer yalsa.CloseCards(cards)

	var out []Info
	for _, card := range cards {
		devices, err := card.Devices()
		if err != nil {
			continue
		}
		for _, dev := range devices {
			if dev.Type != yalsa.PCM {
				continue
			}
			if dir == Capture && !dev.Record {
				continue
			}
			if dir == Playback && !dev.Play {
				continue
			}
			out = append(out, Info{Index: len(out), Title: dev.Title})
		}
	}
	return out, nil
}

// Device is a negotiated ALSA capture or playback device.
type Device struct {
	l          logging.Logger
	dev        *yalsa.Device
	dir        Direction
	sampleRate uint
	channels   uint
	bitDepth   uint
}

// Open enumerates ALSA devices matching dir, opens the one at index (or
// the first match if index < 0), and negotiates it to sampleRate,
// channels and bitDepth, following the teacher's device/alsa.open
// negotiation order (channels, then rate, then format, then period and
// buffer size) but without its ring-buffer/chunking-goroutine machinery:
// the returned Device blocks a full period per Read/Write call instead.
func Open(index int, dir Direction, sampleRate, channels, bitDepth uint, l logging.Logger) (*Device, error) {
	cards, err := yalsa.OpenCards()
	if err != nil {
		return nil, fmt.Errorf("liveaudio: opening sound cards: %w", err)
	}
	defer yalsa.CloseCards(cards)

	var match *yalsa.Device
	seen := 0
	for _, card := range cards {
		devices, err := card.Devices()
		if err != nil {
			continue
		}
		for _, dev := range devices {
			if dev.Type != yalsa.PCM {
				continue
			}
			if dir == Capture && !dev.Record {
				continue
			}
			if dir == Playback && !dev.Play {
				continue
			}
			if index < 0 || seen == index {
				match = dev
				break
			}
			seen++
		}
		if match != nil {
			break
		}
	}
	if match == nil {
		return nil, ErrNoDevice
	}

	l.Debug("opening ALSA device", "title", match.Title, "direction", dir.String())
	if err := match.Open(); err != nil {
		return nil, fmt.Errorf("liveaudio: opening device %q: %w", match.Title, err)
	}

	d := &Device{l: l, dev: match, dir: dir}
	if err := d.negotiate(sampleRate, channels, bitDepth); err != nil {
		match.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) negotiate(sampleRate, channels, bitDepth uint) error {
	gotChannels, err := d.dev.NegotiateChannels(int(channels))
	if err != nil {
		return fmt.Errorf("liveaudio: negotiating %d channel(s): %w", channels, err)
	}
	d.l.Debug("alsa channels negotiated", "channels", gotChannels)

	gotRate, err := d.dev.NegotiateRate(int(sampleRate))
	if err != nil {
		return fmt.Errorf("liveaudio: negotiating %d Hz: %w", sampleRate, err)
	}
	d.l.Debug("alsa rate negotiated", "rate", gotRate)

	var wantFmt yalsa.FormatType
	switch bitDepth {
	case 16:
		wantFmt = yalsa.S16_LE
	case 32:
		wantFmt = yalsa.S32_LE
	default:
		return fmt.Errorf("liveaudio: unsupported bit depth %d, want 16 or 32", bitDepth)
	}
	gotFmt, err := d.dev.NegotiateFormat(wantFmt)
	if err != nil {
		return fmt.Errorf("liveaudio: negotiating %d-bit format: %w", bitDepth, err)
	}
	switch gotFmt {
	case yalsa.S16_LE:
		d.bitDepth = 16
	case yalsa.S32_LE:
		d.bitDepth = 32
	default:
		return fmt.Errorf("liveaudio: device negotiated an unsupported format")
	}
	d.l.Debug("alsa format negotiated", "bitdepth", d.bitDepth)

	bytesPerSecond := gotRate * gotChannels * int(d.bitDepth/8)
	periodSize, err := d.dev.NegotiatePeriodSize(int(float64(bytesPerSecond) * period.Seconds()))
	if err != nil {
		return fmt.Errorf("liveaudio: negotiating period size: %w", err)
	}
	if _, err := d.dev.NegotiateBufferSize(periodSize * 4); err != nil {
		return fmt.Errorf("liveaudio: negotiating buffer size: %w", err)
	}
	if err := d.dev.Prepare(); err != nil {
		return fmt.Errorf("liveaudio: preparing device: %w", err)
	}

	d.sampleRate, d.channels = uint(gotRate), uint(gotChannels)
	return nil
}

// SampleRate, Channels and BitDepth return the negotiated device
// parameters, which may differ from what was requested if the hardware
// could not support it exactly.
func (d *Device) SampleRate() uint { return d.sampleRate }
func (d *Device) Channels() uint   { return d.channels }
func (d *Device) BitDepth() uint   { return d.bitDepth }

// Read fills p completely from the capture device, blocking until a
// full period of audio is available. Read is only valid on a Device
// opened with Capture.
func (d *Device) Read(p []byte) (int, error) {
	if d.dir != Capture {
		return 0, fmt.Errorf("liveaudio: Read on a %v device", d.dir)
	}
	if err := d.dev.Read(p); err != nil {
		return 0, fmt.Errorf("liveaudio: reading: %w", err)
	}
	return len(p), nil
}

// Write renders p to the playback device, blocking until ALSA has
// accepted it. Write is only valid on a Device opened with Playback.
func (d *Device) Write(p []byte) (int, error) {
	if d.dir != Playback {
		return 0, fmt.Errorf("liveaudio: Write on a %v device", d.dir)
	}
	if err := d.dev.Write(p); err != nil {
		return 0, fmt.Errorf("liveaudio: writing: %w", err)
	}
	return len(p), nil
}

// Close releases the underlying ALSA device.
func (d *Device) Close() error {
	d.dev.Close()
	return nil
}
