/*
NAME
  bitassembler.go

DESCRIPTION
  bitassembler.go implements the deframer that pairs with the sign-change
  demodulator (demod/signchange): start-bit detection via a sliding
  popcount window, re-alignment, truncated bit sampling and stop-bit
  validation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package frame

import "github.com/ausocean/kcsmodem/mode"

// bit assembler phases.
const (
	phaseScan = iota
	phaseAlign
	phaseBit
	phaseStop
)

// BitAssembler consumes one bit event per Push and emits a decoded byte
// whenever a full start+data+stop frame validates. It carries O(1) state
// between events: the sliding window plus a handful of counters, never a
// buffered history of past events.
type BitAssembler struct {
	p   mode.Params
	win *window

	prevSum  int
	havePrev bool

	phase int

	remaining  int // events left in the current phase.
	bitIndex   int // which of the 8 data bits is being sampled.
	bitCounted int // events counted so far toward the current bit's sum.
	bitSum     int
	byteVal    byte
}

// NewBitAssembler returns a BitAssembler for the given session
// parameters.
func NewBitAssembler(p mode.Params) *BitAssembler {
	return &BitAssembler{p: p, win: newWindow(p.FramesPerBit)}
}

// Push feeds one bit event (0 or 1, as produced by demod/signchange.Feed)
// and returns a decoded byte, wrapped in a single-element slice, whenever
// the stop bits validate. A framing error (stop bits fail to validate)
// silently discards the frame in progress and resumes scanning, matching
// the reference decoder's behaviour of skipping bad frames rather than
// halting.
func (a *BitAssembler) Push(bit int) []byte {
	full := a.win.push(byte(bit))
	sum := a.win.Sum()

	switch a.phase {
	case phaseScan:
		if !full {
			return nil
		}
		if a.havePrev && sum < a.prevSum && sum <= a.p.StartMax {
			a.prevSum = sum
			a.phase = phaseAlign
			a.remaining = a.p.AlignSkip
			if a.remaining <= 0 {
				a.beginBitSampling()
			}
			return nil
		}
		a.prevSum = sum
		a.havePrev = true
		return nil

	case phaseAlign:
		a.remaining--
		if a.remaining <= 0 {
			a.beginBitSampling()
		}
		return nil

	case phaseBit:
		if a.bitCounted < a.p.BitSampleLen {
			a.bitSum += bit
			a.bitCounted++
		}
		a.remaining--
		if a.remaining > 0 {
			return nil
		}
		// CUTS forces bit 7 to an always-one wire pulse (an extra stop
		// bit, not data), so it is cleared in the decoded byte rather
		// than set.
		forced := a.p.Framing == mode.CUTS && a.bitIndex == 7
		if !forced && a.bitSum >= a.p.OneMin {
			a.byteVal |= mode.BitMasks[a.bitIndex]
		}
		a.bitIndex++
		if a.bitIndex < 8 {
			a.beginBit()
			return nil
		}
		a.phase = phaseStop
		a.remaining = a.p.FramesPerBit + 1
		return nil

	case phaseStop:
		a.remaining--
		if a.remaining > 0 {
			return nil
		}
		ok := sum >= a.p.OneMin
		a.phase = phaseScan
		a.prevSum = sum
		a.havePrev = true
		b := a.byteVal
		a.byteVal = 0
		if ok {
			return []byte{b}
		}
		return nil
	}
	return nil
}

func (a *BitAssembler) beginBitSampling() {
	a.phase = phaseBit
	a.bitIndex = 0
	a.byteVal = 0
	a.beginBit()
}

func (a *BitAssembler) beginBit() {
	a.bitCounted = 0
	a.bitSum = 0
	a.remaining = a.p.FramesPerBit
}
