/*
NAME
  mode.go

DESCRIPTION
  mode.go derives the KCS/CUTS wire parameters (tone pair, cycles per
  bit, sliding-window thresholds) for a given baud rate, framing and
  sample rate.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mode derives the per-session wire parameters of the Kansas City
// Standard (and CUTS variant) from a baud rate, framing mode and sample
// rate.
package mode

import (
	"fmt"
	"math"
)

// Baud is one of the three supported KCS speed modes.
type Baud int

// Supported speed modes.
const (
	Baud300  Baud = 300
	Baud1200 Baud = 1200
	Baud2400 Baud = 2400
)

func (b Baud) String() string {
	switch b {
	case Baud300:
		return "300 baud"
	case Baud1200:
		return "1200 baud"
	case Baud2400:
		return "2400 baud"
	default:
		return fmt.Sprintf("unknown baud (%d)", int(b))
	}
}

// Framing selects the bit layout on the wire.
type Framing int

const (
	// KCS is the standard framing: 1 start + 8 data + 2 stop bits.
	KCS Framing = iota
	// CUTS is the Computer Users' Tape Standard variant: 1 start + 7
	// data + 3 stop bits. The 8th data position is forced to 1 and acts
	// as an extra stop bit.
	CUTS
)

func (f Framing) String() string {
	switch f {
	case KCS:
		return "KCS"
	case CUTS:
		return "CUTS"
	default:
		return fmt.Sprintf("unknown framing (%d)", int(f))
	}
}

// BitMasks is the shared LSB-first bit mask table used by both the
// encoder and the deframer to keep wire bit order consistent.
var BitMasks = [8]byte{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

// AlignFrac is the fraction of frames_per_bit discarded immediately
// after start-bit detection to center sampling inside the first data
// bit (spec: re-alignment).
const AlignFrac = 0.45

// bitTruncFrac is the fraction of frames_per_bit actually counted when
// sampling a data bit; the remaining tail is ignored to avoid bleeding
// into the next bit at high baud rates.
const bitTruncFrac = 7.0 / 8.0

// maxRoundError is the maximum tolerated relative error when rounding
// one bit time (CyclesOne mark cycles, in samples) to an integer, beyond
// which the sample rate is considered unsuitable for the requested mode.
// The length of a single cycle is not checked.
const maxRoundError = 0.01

// Params holds the fully-derived set of parameters needed by the
// synthesizer, the demodulators and the deframer for one session.
type Params struct {
	Baud       Baud
	Framing    Framing
	SampleRate uint

	// FOne, FZero are the mark (1) and space (0) tone frequencies in Hz.
	FOne, FZero float64

	// CyclesOne, CyclesZero are the number of full sine cycles
	// transmitted per 1/0 bit.
	CyclesOne, CyclesZero int

	// FramesPerBit is the number of audio samples (bit events) spanned
	// by one bit time: round(SampleRate * CyclesOne / FOne).
	FramesPerBit int

	// StartMax and OneMin are the sliding-window sign-change-count
	// thresholds used by the bit assembler (frame.BitAssembler) to
	// recognize a start bit and a mark bit, respectively.
	StartMax int
	OneMin   int

	// AlignSkip is the number of bit events discarded right after a
	// start bit is detected: floor(FramesPerBit * AlignFrac).
	AlignSkip int

	// BitSampleLen is the number of bit events actually summed when
	// sampling a data bit: ceil(FramesPerBit * 7/8).
	BitSampleLen int
}

// ErrInvalidMode is returned by New when the requested sample rate
// cannot represent the requested baud/framing combination.
var ErrInvalidMode = fmt.Errorf("mode: invalid mode")

// New derives Params for the given baud rate, framing and sample rate.
// freqAdjust shifts both tone frequencies by the given number of Hz,
// corresponding to the CLI's -f base-frequency-adjustment flag.
//
// New fails with ErrInvalidMode if sampleRate violates the Nyquist
// criterion for the mark frequency, or if rounding one bit time
// (FramesPerBit) to an integer number of samples would introduce more
// than 1% error. A single cycle's rounding error is not checked.
func New(baud Baud, framing Framing, sampleRate uint, freqAdjust float64) (Params, error) {
	var p Params
	p.Baud = baud
	p.Framing = framing
	p.SampleRate = sampleRate

	switch baud {
	case Baud300:
		p.FOne, p.FZero = 2400, 1200
		p.CyclesOne, p.CyclesZero = 8, 4
	case Baud1200:
		p.FOne, p.FZero = 2400, 1200
		p.CyclesOne, p.CyclesZero = 2, 1
	case Baud2400:
		p.FOne, p.FZero = 4800, 2400
		p.CyclesOne, p.CyclesZero = 2, 1
	default:
		return Params{}, fmt.Errorf("%w: unsupported baud %d", ErrInvalidMode, int(baud))
	}
	p.FOne += freqAdjust
	p.FZero += freqAdjust

	if float64(sampleRate) < 2*p.FOne {
		return Params{}, fmt.Errorf("%w: sample rate %d Hz below Nyquist for %v Hz mark tone", ErrInvalidMode, sampleRate, p.FOne)
	}

	exact := float64(sampleRate) * float64(p.CyclesOne) / p.FOne
	rounded := math.Round(exact)
	if rounded == 0 || math.Abs(rounded-exact)/exact > maxRoundError {
		return Params{}, fmt.Errorf("%w: sample rate %d Hz quantizes %v with >1%% error", ErrInvalidMode, sampleRate, baud)
	}
	p.FramesPerBit = int(rounded)

	switch baud {
	case Baud300:
		p.StartMax, p.OneMin = 11, 13
	case Baud1200, Baud2400:
		p.StartMax, p.OneMin = 2, 3
	}

	p.AlignSkip = int(math.Floor(float64(p.FramesPerBit) * AlignFrac))
	p.BitSampleLen = int(math.Ceil(float64(p.FramesPerBit) * bitTruncFrac))

	return p, nil
}

// SamplesPerCycle returns the number of audio samples comprising one
// full sine cycle of freq at the session's sample rate.
func (p Params) SamplesPerCycle(freq float64) int {
	return int(math.Round(float64(p.SampleRate) / freq))
}

// ByteSamples returns the exact number of samples emitted by the
// synthesizer for a byte value under p, per spec's closed form: useful
// for leader/trailer length computation.
func (p Params) ByteSamples(b byte) int {
	ones, zeros := 0, 0
	for i, mask := range BitMasks {
		bit := b&mask != 0
		if p.Framing == CUTS && i == 7 {
			bit = true
		}
		if bit {
			ones++
		} else {
			zeros++
		}
	}
	stopOnes := 2 // spec.md §4.B: always two trailing one_pulse blocks.
	oneCycleSamples := p.SamplesPerCycle(p.FOne) * p.CyclesOne
	zeroCycleSamples := p.SamplesPerCycle(p.FZero) * p.CyclesZero
	return oneCycleSamples*(stopOnes+ones) + zeroCycleSamples*(1+zeros)
}
