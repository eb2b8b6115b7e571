/*
NAME
  symbolassembler.go

DESCRIPTION
  symbolassembler.go implements the deframer that pairs with the FFT
  demodulator (demod/fft): buffered carrier-gated matched-filter framing,
  correlating against ideal start/stop symbol kernels instead of counting
  sign changes.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package frame

import (
	"github.com/ausocean/kcsmodem/demod/fft"
	"github.com/ausocean/kcsmodem/mode"
)

// DefaultCarrierThreshold and DefaultMatchThreshold are the empirically
// tuned defaults from the reference FFT decoder (spec open question (c):
// exposed as tunables, not constants).
const (
	DefaultCarrierThreshold = 0.8
	DefaultMatchThreshold   = 1.0
)

// SymbolAssembler buffers FFT symbols and extracts bytes by correlating
// against ideal start/stop symbol patterns, unlike BitAssembler's O(1)
// per-event state machine. Its memory is bounded to a small multiple of
// symbolLen*11 (one frame word), never the full stream.
type SymbolAssembler struct {
	// CarrierThreshold and MatchThreshold are tunable (spec open question
	// (c)): the minimum fraction of buffered symbols that must be tone
	// (not SymbolNone) before a frame search runs, and the minimum
	// combined start+stop correlation score to accept a match.
	CarrierThreshold float64
	MatchThreshold   float64

	p       mode.Params
	symLen  int
	wordLen int // 11 * symLen: one start + 8 data + 2 stop symbols.

	buf []int
}

// NewSymbolAssembler returns a SymbolAssembler for the given session
// parameters and symbol length, the number of FFT symbols per bit
// (demod/fft.WindowLen(p), times 4 at 300 baud).
func NewSymbolAssembler(p mode.Params, symbolLen int) *SymbolAssembler {
	if symbolLen < 1 {
		symbolLen = 1
	}
	return &SymbolAssembler{
		CarrierThreshold: DefaultCarrierThreshold,
		MatchThreshold:   DefaultMatchThreshold,
		p:                p,
		symLen:           symbolLen,
		wordLen:          11 * symbolLen,
	}
}

// Push feeds one FFT symbol (demod/fft.SymbolNone/Zero/One) and returns
// zero or more decoded bytes extracted from the buffer as a result.
func (a *SymbolAssembler) Push(symbol int) []byte {
	a.buf = append(a.buf, symbol)
	var out []byte
	for {
		b, ok := a.tryDecode()
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out
}

// tryDecode attempts one extraction from the buffered symbols, mutating
// the buffer to consume (or discard) what it examined. It returns
// ok=false when not enough symbols are buffered yet, or when no frame
// could be located, in which case the caller should stop looping.
func (a *SymbolAssembler) tryDecode() (byte, bool) {
	n := a.symLen
	if len(a.buf) < 2*a.wordLen {
		return 0, false
	}

	// Carrier gate: discard the whole buffer if the signal looks like
	// silence/noise rather than a modulated tone.
	present := 0
	for _, s := range a.buf {
		if s == fft.SymbolZero || s == fft.SymbolOne {
			present++
		}
	}
	if float64(present)/float64(len(a.buf)) <= a.CarrierThreshold {
		a.buf = a.buf[:0]
		return 0, false
	}

	pp := make([]float64, len(a.buf))
	for i, s := range a.buf {
		v := s
		if v < fft.SymbolZero {
			v = fft.SymbolZero
		}
		if v > fft.SymbolOne {
			v = fft.SymbolOne
		}
		pp[i] = float64(v)*2 - 3 // {SymbolZero=1,SymbolOne=2} -> {-1,+1}.
	}

	startK := make([]float64, n)
	stopK := make([]float64, n)
	for i := range startK {
		startK[i] = -1.0 / float64(n)
		stopK[i] = 1.0 / float64(n)
	}

	total := len(pp)
	startMatch := validCorrelate(pp, startK)
	stopMatch := validCorrelate(pp, stopK)

	startShifted := shiftPad(startMatch, n, n-1, total)
	stopShifted := shiftPad(stopMatch, 11*n, n-1, total)

	match := make([]bool, total)
	for i := 0; i < total; i++ {
		if startShifted[i]+stopShifted[i] > a.MatchThreshold {
			match[i] = true
		}
	}
	match = shiftRight(match, n/2)

	idx := -1
	for i, m := range match {
		if m {
			idx = i
			break
		}
	}
	if idx < 0 {
		if len(a.buf) > n {
			a.buf = a.buf[len(a.buf)-n:]
		}
		return 0, false
	}

	wordStart := idx + n
	wordEnd := wordStart + 8*n
	if len(a.buf) < wordEnd {
		start := wordStart - 2*n
		if start < 0 {
			start = 0
		}
		a.buf = a.buf[start:]
		return 0, false
	}

	var b byte
	for i := 0; i < 8; i++ {
		// CUTS forces bit 7 to an always-one wire pulse (an extra stop
		// bit, not data), so it is cleared in the decoded byte rather
		// than set.
		if a.p.Framing == mode.CUTS && i == 7 {
			continue
		}
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += pp[wordStart+i*n+j]
		}
		if sum/float64(n) > 0 {
			b |= mode.BitMasks[i]
		}
	}
	a.buf = a.buf[wordEnd:]
	return b, true
}

// validCorrelate computes the length-(len(x)-len(k)+1) "valid"
// cross-correlation of x against k (no kernel flip, since every kernel
// here is a constant-valued matched filter where flipping changes
// nothing).
func validCorrelate(x, k []float64) []float64 {
	if len(x) < len(k) {
		return nil
	}
	out := make([]float64, len(x)-len(k)+1)
	for i := range out {
		sum := 0.0
		for j, kv := range k {
			sum += x[i+j] * kv
		}
		out[i] = sum
	}
	return out
}

// shiftPad drops the first offset entries of arr, then left-pads by
// leftPad zeros and right-pads (with zeros, implicitly, via totalLen) so
// the result has length totalLen.
func shiftPad(arr []float64, offset, leftPad, totalLen int) []float64 {
	out := make([]float64, totalLen)
	if offset >= len(arr) {
		return out
	}
	src := arr[offset:]
	for i, v := range src {
		pos := leftPad + i
		if pos >= 0 && pos < totalLen {
			out[pos] = v
		}
	}
	return out
}

// shiftRight shifts a boolean slice right by k positions, discarding the
// last k entries and filling the first k with false.
func shiftRight(match []bool, k int) []bool {
	out := make([]bool, len(match))
	if k >= len(match) {
		return out
	}
	for i := 0; i < len(match)-k; i++ {
		out[i+k] = match[i]
	}
	return out
}
