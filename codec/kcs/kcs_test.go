package kcs

import (
	"bytes"
	"testing"

	"github.com/ausocean/kcsmodem/mode"
)

func TestMakeCyclePhaseContinuous(t *testing.T) {
	c := MakeCycle(2400, 9600, DefaultOptions(Format8U))
	if len(c) == 0 {
		t.Fatal("empty cycle")
	}
	// A full sine cycle starts and ends at the same phase (both samples
	// should be at the zero crossing / center value), so tiling cycles
	// back to back introduces no discontinuity.
	if c[0] != byte(128) {
		t.Errorf("cycle does not start at center: got %d", c[0])
	}
}

func TestEncodeByteLayout(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.KCS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	s := New(p, DefaultOptions(Format8U))

	// "H" = 0x48 = 0b01001000, LSB-first bit pattern 0,0,0,1,0,0,1,0.
	frame := s.EncodeByte(0x48)
	pulse := len(s.ZeroPulse())
	onePulse := len(s.OnePulse())

	want := 0
	want += pulse // start.
	bits := []bool{false, false, false, true, false, false, true, false}
	for _, b := range bits {
		if b {
			want += onePulse
		} else {
			want += pulse
		}
	}
	want += onePulse * 2 // two stop bits.

	if len(frame) != want {
		t.Errorf("frame length = %d, want %d", len(frame), want)
	}
}

func TestCUTSForcesBit7(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.CUTS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	s := New(p, DefaultOptions(Format8U))

	// 0x48 and 0xC8 differ only in bit 7; under CUTS both should encode
	// identically (invariant 5).
	a := s.EncodeByte(0x48)
	b := s.EncodeByte(0xC8)
	if !bytes.Equal(a, b) {
		t.Errorf("CUTS encoding of 0x48 and 0xC8 differ")
	}
}

func TestLeaderIsCarrier(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.KCS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	s := New(p, DefaultOptions(Format8U))
	leader := s.Carrier(1.0)
	if len(leader)%len(s.OnePulse()) != 0 {
		t.Errorf("leader is not a whole number of one_pulse tiles")
	}
	if len(leader) == 0 {
		t.Fatal("empty leader")
	}
}

func TestSynthesizeConcatenation(t *testing.T) {
	p, err := mode.New(mode.Baud1200, mode.KCS, 44100, 0)
	if err != nil {
		t.Fatal(err)
	}
	s := New(p, DefaultOptions(Format8U))
	data := []byte{0x00}
	out := s.Synthesize(data, 0, 0)
	want := s.EncodeByte(0x00)
	if !bytes.Equal(out, want) {
		t.Errorf("Synthesize with no leader/trailer should equal EncodeByte output")
	}
}
