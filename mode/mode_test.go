package mode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewDerivesFrameDuration(t *testing.T) {
	cases := []struct {
		baud       Baud
		sampleRate uint
	}{
		{Baud300, 9600},
		{Baud300, 44100},
		{Baud1200, 44100},
		{Baud2400, 48000},
	}
	for _, c := range cases {
		p, err := New(c.baud, KCS, c.sampleRate, 0)
		if err != nil {
			t.Fatalf("New(%v, %v): %v", c.baud, c.sampleRate, err)
		}
		// Invariant 3: cycles_one/f_one == cycles_zero/f_zero (frame duration).
		lhs := float64(p.CyclesOne) / p.FOne
		rhs := float64(p.CyclesZero) / p.FZero
		if diff := lhs - rhs; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%v: cycles_one/f_one (%v) != cycles_zero/f_zero (%v)", c.baud, lhs, rhs)
		}
		// Bit duration should correspond to the nominal baud rate.
		wantBitDuration := 1 / float64(c.baud)
		if diff := lhs - wantBitDuration; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%v: bit duration %v != expected %v", c.baud, lhs, wantBitDuration)
		}
	}
}

func TestNewParams300BaudKCS(t *testing.T) {
	got, err := New(Baud300, KCS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := Params{
		Baud:         Baud300,
		Framing:      KCS,
		SampleRate:   9600,
		FOne:         2400,
		FZero:        1200,
		CyclesOne:    8,
		CyclesZero:   4,
		FramesPerBit: 32,
		StartMax:     11,
		OneMin:       13,
		AlignSkip:    14,
		BitSampleLen: 28,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("New(Baud300, KCS, 9600, 0) mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRejectsSubNyquist(t *testing.T) {
	_, err := New(Baud2400, KCS, 4000, 0)
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestNewThresholds(t *testing.T) {
	cases := []struct {
		baud              Baud
		startMax, oneMin int
	}{
		{Baud300, 11, 13},
		{Baud1200, 2, 3},
		{Baud2400, 2, 3},
	}
	for _, c := range cases {
		p, err := New(c.baud, KCS, 48000, 0)
		if err != nil {
			t.Fatalf("New(%v): %v", c.baud, err)
		}
		if p.StartMax != c.startMax || p.OneMin != c.oneMin {
			t.Errorf("%v: got (startMax=%d, oneMin=%d), want (%d, %d)", c.baud, p.StartMax, p.OneMin, c.startMax, c.oneMin)
		}
	}
}

func TestByteSamplesMatchesCUTSForcing(t *testing.T) {
	p, err := New(Baud300, CUTS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Bit 7 set or clear should not change the emitted sample count under
	// CUTS, since it's always forced to a one_pulse block.
	a := p.ByteSamples(0x48)
	b := p.ByteSamples(0xC8)
	if a != b {
		t.Errorf("ByteSamples(0x48)=%d != ByteSamples(0xC8)=%d under CUTS", a, b)
	}
}
