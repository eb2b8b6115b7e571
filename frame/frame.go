/*
NAME
  frame.go

DESCRIPTION
  frame.go defines the shared deframer abstraction: an Assembler turns a
  stream of demodulator events (bit events or FFT symbols) into decoded
  bytes, one frame (start + 8 data + 2 stop) at a time.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame implements the deframer: byte assembly from a stream of
// demodulator events, grounded on the generate_bytes logic of the
// reference decoders, one for each of the two demodulators.
package frame

// Assembler turns one incoming demodulator event into zero or more
// decoded bytes. BitAssembler expects bit events (0 or 1); SymbolAssembler
// expects FFT symbols (demod/fft.SymbolNone/Zero/One). Both satisfy this
// interface so the pipeline package can wire either demodulator to its
// deframer without knowing which is in use.
type Assembler interface {
	Push(x int) []byte
}

// window is a fixed-capacity ring buffer of 0/1 events that maintains its
// population count incrementally: Sum is O(1) after every Push, never
// recomputed by scanning the buffer. This is the sliding window shared by
// start-bit detection, bit sampling and stop-bit validation in
// BitAssembler.
type window struct {
	buf    []byte
	cap    int
	pos    int
	filled int
	sum    int
}

func newWindow(capacity int) *window {
	if capacity < 1 {
		capacity = 1
	}
	return &window{buf: make([]byte, capacity), cap: capacity}
}

// push inserts bit into the ring, evicting the oldest entry once the
// window is at capacity, and returns whether the window was already full
// before this push (i.e. whether Sum is now meaningful over a full
// frames_per_bit span).
func (w *window) push(bit byte) (full bool) {
	if bit != 0 {
		bit = 1
	}
	if w.filled < w.cap {
		w.buf[w.pos] = bit
		w.sum += int(bit)
		w.pos = (w.pos + 1) % w.cap
		w.filled++
		return false
	}
	old := w.buf[w.pos]
	w.sum += int(bit) - int(old)
	w.buf[w.pos] = bit
	w.pos = (w.pos + 1) % w.cap
	return true
}

func (w *window) Sum() int { return w.sum }
