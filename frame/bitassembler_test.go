package frame

import (
	"testing"

	"github.com/ausocean/kcsmodem/codec/kcs"
	"github.com/ausocean/kcsmodem/demod/signchange"
	"github.com/ausocean/kcsmodem/mode"
)

// encodeBitStream renders data through the synthesizer and the
// sign-change demodulator, producing the bit-event stream a BitAssembler
// would see from a live or file audio source.
func encodeBitStream(t *testing.T, p mode.Params, data []byte) []byte {
	t.Helper()
	s := kcs.New(p, kcs.DefaultOptions(kcs.Format8U))
	// A short leader primes the sliding window with a stable high
	// (mark-tone) baseline before the first start bit's falling edge, the
	// same reason real KCS captures always carry a carrier preamble.
	pcm := s.Synthesize(data, 0.05, 0)
	d := signchange.New(signchange.DefaultHiThreshold)
	return d.Feed(pcm, 1, 1)
}

func decodeAll(p mode.Params, bits []byte) []byte {
	a := NewBitAssembler(p)
	var out []byte
	for _, b := range bits {
		out = append(out, a.Push(int(b))...)
	}
	return out
}

func TestBitAssemblerRoundTripKCS(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.KCS, 44100, 0)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("HI")
	bits := encodeBitStream(t, p, data)
	got := decodeAll(p, bits)
	if string(got) != "HI" {
		t.Errorf("decoded %q, want %q", got, data)
	}
}

func TestBitAssemblerRoundTripCUTS(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.CUTS, 44100, 0)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte{0xC8} // bit 7 set on the wire; CUTS clears it on decode.
	bits := encodeBitStream(t, p, data)
	got := decodeAll(p, bits)
	if len(got) != 1 || got[0] != 0x48 {
		t.Errorf("decoded %v, want [0x48]", got)
	}
}

func TestBitAssemblerRoundTripHighBaud(t *testing.T) {
	p, err := mode.New(mode.Baud1200, mode.KCS, 44100, 0)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte{0x00, 0xFF}
	bits := encodeBitStream(t, p, data)
	got := decodeAll(p, bits)
	if len(got) != 2 || got[0] != 0x00 || got[1] != 0xFF {
		t.Errorf("decoded %v, want [0x00 0xFF]", got)
	}
}

func TestWindowSumMatchesPopcount(t *testing.T) {
	w := newWindow(5)
	seq := []byte{1, 0, 1, 1, 0, 1, 0, 0, 1, 1}
	for i, bit := range seq {
		w.push(bit)
		start := i - 4
		if start < 0 {
			start = 0
		}
		want := 0
		for _, b := range seq[start : i+1] {
			want += int(b)
		}
		if w.Sum() != want {
			t.Fatalf("after pushing %v: Sum() = %d, want %d", seq[:i+1], w.Sum(), want)
		}
	}
}
