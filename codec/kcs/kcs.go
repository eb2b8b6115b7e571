/*
NAME
  kcs.go

DESCRIPTION
  kcs.go implements the KCS/CUTS waveform synthesizer: the bit-exact,
  phase-continuous conversion of a byte stream into a PCM sample stream.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package kcs implements the Kansas City Standard (and CUTS variant)
// waveform synthesizer: one sine cycle is the atomic tile, and every bit,
// byte and leader/trailer is pure concatenation of tiles, so encoding is
// bit-exact and phase-continuous at every pulse boundary.
package kcs

import (
	"fmt"
	"math"

	"github.com/ausocean/kcsmodem/mode"
)

// Format is the PCM sample format the synthesizer emits.
type Format int

const (
	// Format8U is 8-bit unsigned PCM, the default wire format for WAV
	// output (center 128, amplitude 120 by default).
	Format8U Format = iota
	// Format16LE is 16-bit signed little-endian PCM, matching the
	// native format of typical live playback devices.
	Format16LE
)

// Options configures the amplitude and center point of the synthesized
// waveform.
type Options struct {
	Format    Format
	Amplitude float64
	Center    float64 // only meaningful for Format8U.
}

// DefaultOptions returns the default synthesis options for the given
// format: center 128 / amplitude 120 for 8-bit unsigned PCM (spec
// default), or amplitude at roughly 90% of full scale for 16-bit signed.
func DefaultOptions(f Format) Options {
	switch f {
	case Format16LE:
		return Options{Format: f, Amplitude: 0.9 * math.MaxInt16}
	default:
		return Options{Format: Format8U, Amplitude: 120, Center: 128}
	}
}

// Synthesizer renders KCS/CUTS frames for one mode.Params session. The
// one_pulse and zero_pulse tiles are built once at construction time so
// EncodeByte is pure concatenation thereafter.
type Synthesizer struct {
	Params mode.Params
	Opts   Options

	onePulse, zeroPulse []byte
	cycleOne, cycleZero []byte
}

// New builds a Synthesizer for the given session parameters.
func New(p mode.Params, opts Options) *Synthesizer {
	s := &Synthesizer{Params: p, Opts: opts}
	s.cycleOne = MakeCycle(p.FOne, p.SampleRate, opts)
	s.cycleZero = MakeCycle(p.FZero, p.SampleRate, opts)
	s.onePulse = repeatCycle(s.cycleOne, p.CyclesOne)
	s.zeroPulse = repeatCycle(s.cycleZero, p.CyclesZero)
	return s
}

// bytesPerSample returns the PCM sample width in bytes for f.
func bytesPerSample(f Format) int {
	switch f {
	case Format16LE:
		return 2
	default:
		return 1
	}
}

// MakeCycle returns one full sine period at freq Hz sampled at
// sampleRate, quantized to opts.Format. Its length is
// round(sampleRate/freq), the atomic tile every pulse is built from.
func MakeCycle(freq float64, sampleRate uint, opts Options) []byte {
	n := int(math.Round(float64(sampleRate) / freq))
	if n <= 0 {
		n = 1
	}
	bps := bytesPerSample(opts.Format)
	out := make([]byte, n*bps)
	for i := 0; i < n; i++ {
		y := math.Sin(2 * math.Pi * float64(i) / float64(n))
		switch opts.Format {
		case Format16LE:
			v := int16(math.Round(opts.Amplitude * y))
			out[i*2] = byte(v)
			out[i*2+1] = byte(v >> 8)
		default:
			v := byte(math.Round(opts.Center + opts.Amplitude*y))
			out[i] = v
		}
	}
	return out
}

// repeatCycle concatenates cycle n times, forming one pulse block.
func repeatCycle(cycle []byte, n int) []byte {
	out := make([]byte, 0, len(cycle)*n)
	for i := 0; i < n; i++ {
		out = append(out, cycle...)
	}
	return out
}

// OnePulse returns the precomputed one_pulse tile (mark tone, CyclesOne
// cycles). The returned slice must not be modified.
func (s *Synthesizer) OnePulse() []byte { return s.onePulse }

// ZeroPulse returns the precomputed zero_pulse tile (space tone,
// CyclesZero cycles). The returned slice must not be modified.
func (s *Synthesizer) ZeroPulse() []byte { return s.zeroPulse }

// BytesPerSample returns the PCM sample width, in bytes, of samples
// produced by this Synthesizer.
func (s *Synthesizer) BytesPerSample() int { return bytesPerSample(s.Opts.Format) }

// EncodeByte builds the full on-air frame for one byte: one start-bit
// block (zero_pulse), eight data-bit blocks (bit 7 forced to one_pulse
// under CUTS framing, regardless of the input value), then two
// one_pulse stop blocks. Bits are taken least-significant-first.
func (s *Synthesizer) EncodeByte(b byte) []byte {
	frame := make([]byte, 0, len(s.zeroPulse)+8*len(s.onePulse)+2*len(s.onePulse))
	frame = append(frame, s.zeroPulse...) // start bit.
	for i, mask := range mode.BitMasks {
		if s.Params.Framing == mode.CUTS && i == 7 {
			frame = append(frame, s.onePulse...)
			continue
		}
		if b&mask != 0 {
			frame = append(frame, s.onePulse...)
		} else {
			frame = append(frame, s.zeroPulse...)
		}
	}
	frame = append(frame, s.onePulse...) // stop bit 1.
	frame = append(frame, s.onePulse...) // stop bit 2.
	return frame
}

// Carrier returns seconds worth of mark-tone carrier (one_pulse
// repeated), used for the leader and trailer.
func (s *Synthesizer) Carrier(seconds float64) []byte {
	if len(s.onePulse) == 0 {
		return nil
	}
	total := int(math.Round(float64(s.Params.SampleRate) * seconds))
	bps := s.BytesPerSample()
	samplesPerPulse := len(s.onePulse) / bps
	if samplesPerPulse == 0 {
		return nil
	}
	repeats := total / samplesPerPulse
	return repeatCycle(s.onePulse, repeats)
}

// Synthesize renders data in full: leader, then every byte's frame, then
// trailer. For bounded-memory streaming synthesis (e.g. live audio
// output or very large inputs) use EncodeByte directly per byte, as the
// pipeline package does for both WAV and live output; Synthesize is the
// bulk, whole-stream operation, used by tests.
func (s *Synthesizer) Synthesize(data []byte, leaderSec, trailerSec float64) []byte {
	out := make([]byte, 0, len(s.Carrier(leaderSec))+len(data)*len(s.zeroPulse)*11+len(s.Carrier(trailerSec)))
	out = append(out, s.Carrier(leaderSec)...)
	for _, b := range data {
		out = append(out, s.EncodeByte(b)...)
	}
	out = append(out, s.Carrier(trailerSec)...)
	return out
}

// String describes the synthesizer's session parameters, useful for
// diagnostic logging.
func (s *Synthesizer) String() string {
	return fmt.Sprintf("kcs synthesizer: %v %v, fOne=%.1fHz fZero=%.1fHz, sampleRate=%dHz",
		s.Params.Baud, s.Params.Framing, s.Params.FOne, s.Params.FZero, s.Params.SampleRate)
}
