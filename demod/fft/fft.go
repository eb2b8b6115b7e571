/*
NAME
  fft.go

DESCRIPTION
  fft.go implements the sliding-window FFT KCS demodulator: a higher-
  fidelity alternative to the sign-change demodulator, using short-time
  spectral estimation to find the dominant tone at every sample.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package fft implements the sliding-window FFT KCS demodulator, calling
// github.com/mjibson/go-dsp/fft directly for the real-to-complex FFT.
package fft

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/ausocean/kcsmodem/mode"
)

// SymbolNone, SymbolZero and SymbolOne are the dominant-frequency
// symbols the demodulator emits: SymbolNone for noise/carrier loss,
// SymbolZero when the dominant bin matches the space tone, SymbolOne
// when it matches the mark tone.
const (
	SymbolNone = 0
	SymbolZero = 1
	SymbolOne  = 2
)

// WindowLen returns the FFT window length for the given session
// parameters: round(sample_rate/f_one)*2, chosen so both tone
// frequencies fall near bin centers.
func WindowLen(p mode.Params) int {
	n := int(math.Round(float64(p.SampleRate)/p.FOne)) * 2
	if n < 2 {
		n = 2
	}
	return n
}

// Demod is a sliding-window FFT demodulator. It keeps only the last
// WindowLen-1 samples buffered between Feed calls, matching spec's
// O(window) memory bound.
type Demod struct {
	WindowLen int

	// ZeroBin and OneBin are the expected FFT bin indices of the space
	// and mark tones, respectively.
	ZeroBin, OneBin int

	// BinTolerance is how many bins away from ZeroBin/OneBin still count
	// as a match (spec §9: "tolerate ±1 bin").
	BinTolerance int

	buf []float64 // exactly WindowLen-1 samples of history, zero-padded initially.
}

// New returns a Demod for the given session parameters. tolerance is the
// bin-matching tolerance (spec §9(c) calls this a tunable, not a
// constant); pass 1 for the spec's default.
func New(p mode.Params, tolerance int) *Demod {
	w := WindowLen(p)
	return &Demod{
		WindowLen:    w,
		ZeroBin:      int(math.Round(float64(w) * p.FZero / float64(p.SampleRate))),
		OneBin:       int(math.Round(float64(w) * p.FOne / float64(p.SampleRate))),
		BinTolerance: tolerance,
		buf:          make([]float64, w-1),
	}
}

// Feed pushes a chunk of new samples through the sliding window and
// returns one symbol per input sample (stride 1), after an initial
// WindowLen-1 warm-up which is implicit since buf starts zero-padded.
func (d *Demod) Feed(samples []float64) []int {
	d.buf = append(d.buf, samples...)
	m := len(samples)
	out := make([]int, m)
	halfLen := d.WindowLen / 2
	window := make([]float64, d.WindowLen)
	for i := 0; i < m; i++ {
		copy(window, d.buf[i:i+d.WindowLen])
		spectrum := fft.FFTReal(window)
		bestBin, bestMag := 0, -1.0
		for bin := 0; bin < halfLen; bin++ {
			mag := cmplxAbs(spectrum[bin])
			if mag > bestMag {
				bestMag, bestBin = mag, bin
			}
		}
		out[i] = d.classify(bestBin)
	}
	// Retain the trailing WindowLen-1 samples as history for the next call.
	d.buf = append([]float64(nil), d.buf[m:]...)
	return out
}

func (d *Demod) classify(bin int) int {
	// When both tones are within tolerance (adjacent bins), the nearer
	// one wins.
	dz, do := abs(bin-d.ZeroBin), abs(bin-d.OneBin)
	switch {
	case do <= d.BinTolerance && do < dz:
		return SymbolOne
	case dz <= d.BinTolerance:
		return SymbolZero
	case do <= d.BinTolerance:
		return SymbolOne
	}
	return SymbolNone
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
