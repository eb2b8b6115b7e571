package frame

import (
	"testing"

	"github.com/ausocean/kcsmodem/demod/fft"
	"github.com/ausocean/kcsmodem/mode"
)

// repeatSymbol returns sym repeated n times, the idealized per-bit symbol
// run a noiseless FFT demodulator would produce.
func repeatSymbol(sym, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = sym
	}
	return out
}

// frameSymbols builds the idealized symbol sequence for one byte under
// KCS framing: start (zero) + 8 data bits LSB-first + 2 stop (one).
func frameSymbols(b byte, n int) []int {
	var out []int
	out = append(out, repeatSymbol(fft.SymbolZero, n)...)
	for _, mask := range mode.BitMasks {
		if b&mask != 0 {
			out = append(out, repeatSymbol(fft.SymbolOne, n)...)
		} else {
			out = append(out, repeatSymbol(fft.SymbolZero, n)...)
		}
	}
	out = append(out, repeatSymbol(fft.SymbolOne, n)...)
	out = append(out, repeatSymbol(fft.SymbolOne, n)...)
	return out
}

func TestSymbolAssemblerExtractsByte(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.KCS, 44100, 0)
	if err != nil {
		t.Fatal(err)
	}
	const n = 4
	a := NewSymbolAssembler(p, n)

	wordLen := 11 * n
	var stream []int
	stream = append(stream, repeatSymbol(fft.SymbolOne, 3*wordLen)...) // carrier leader.
	stream = append(stream, frameSymbols(0x41, n)...)
	stream = append(stream, repeatSymbol(fft.SymbolOne, 2*wordLen)...) // trailing carrier.

	var got []byte
	for _, sym := range stream {
		got = append(got, a.Push(sym)...)
	}

	found := false
	for _, b := range got {
		if b == 0x41 {
			found = true
		}
	}
	if !found {
		t.Errorf("decoded bytes %v do not contain 0x41", got)
	}
}

func TestSymbolAssemblerDiscardsOnNoCarrier(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.KCS, 44100, 0)
	if err != nil {
		t.Fatal(err)
	}
	const n = 4
	a := NewSymbolAssembler(p, n)
	wordLen := 11 * n

	var out []byte
	for i := 0; i < 3*wordLen; i++ {
		out = append(out, a.Push(fft.SymbolNone)...)
	}
	if len(out) != 0 {
		t.Errorf("expected no decoded bytes from a silent/noise stream, got %v", out)
	}
}
