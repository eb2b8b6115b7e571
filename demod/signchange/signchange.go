/*
NAME
  signchange.go

DESCRIPTION
  signchange.go implements the sign-change (zero-crossing count) KCS
  demodulator: a cheap, PLL-free hysteresis filter over the MSB of the
  leftmost audio channel, emitting one bit event per sample.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package signchange implements the sign-change/zero-crossing KCS
// demodulator.
package signchange

// DefaultHiThreshold is a robust default for live input. Higher values
// suppress more noise at the cost of sensitivity.
const DefaultHiThreshold = 0x10

// Demod maintains the hysteresis state of the sign-change demodulator
// across Feed calls, so a live audio stream can be pushed through in
// arbitrarily sized chunks with no loss of state at chunk boundaries.
type Demod struct {
	// HiThreshold is the MSB magnitude threshold for a LOW->HIGH
	// transition; the symmetric LOW threshold for HIGH->LOW is
	// 0xFF-HiThreshold.
	HiThreshold byte

	prev byte // previous "pos" state: 0 (low) or 1 (high).
}

// New returns a Demod using hiThreshold as its hysteresis threshold.
func New(hiThreshold byte) *Demod {
	return &Demod{HiThreshold: hiThreshold}
}

func (d *Demod) loThreshold() byte { return 0xFF - d.HiThreshold }

// Feed extracts the MSB of the leftmost channel from a chunk of raw PCM
// frames (sampleWidth bytes per channel sample, channels interleaved
// channels per frame) and returns one bit event per frame: 1 if the
// hysteresis state flipped on that sample, 0 otherwise.
//
// Feed never buffers more than the current chunk; state carried between
// calls is the single previous "pos" bit, matching the spec's bound of
// O(1) demodulator memory between samples.
func (d *Demod) Feed(frames []byte, sampleWidth, channels int) []byte {
	stride := sampleWidth * channels
	if stride <= 0 || len(frames) < stride {
		return nil
	}
	n := len(frames) / stride
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		msb := frames[i*stride+sampleWidth-1]
		if sampleWidth == 1 {
			// 8-bit PCM is unsigned (center 0x80); flip bit 7 so the
			// thresholds below see the same signed layout as wider PCM.
			msb ^= 0x80
		}
		var pos byte
		if d.prev == 0 {
			if msb < 0x80 && msb > d.HiThreshold {
				pos = 1
			}
		} else {
			pos = 1
			if msb > 0x80 && msb < d.loThreshold() {
				pos = 0
			}
		}
		out[i] = pos ^ d.prev
		d.prev = pos
	}
	return out
}
