package wavfile

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip8Bit(t *testing.T) {
	f := Format{SampleRate: 9600, Channels: 1, BitDepth: 8}
	pcm := []byte{128, 129, 127, 200, 50, 0, 255}
	var buf bytes.Buffer
	if err := Encode(&buf, f, pcm); err != nil {
		t.Fatal(err)
	}
	gotFormat, gotPCM, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if gotFormat != f {
		t.Errorf("format = %+v, want %+v", gotFormat, f)
	}
	if !bytes.Equal(gotPCM, pcm) {
		t.Errorf("pcm = %v, want %v", gotPCM, pcm)
	}
}

func TestEncodeDecodeRoundTrip16BitStereo(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
	pcm := []byte{0x00, 0x80, 0xFF, 0x7F, 0x01, 0x00, 0x00, 0x00}
	var buf bytes.Buffer
	if err := Encode(&buf, f, pcm); err != nil {
		t.Fatal(err)
	}
	gotFormat, gotPCM, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if gotFormat != f {
		t.Errorf("format = %+v, want %+v", gotFormat, f)
	}
	if !bytes.Equal(gotPCM, pcm) {
		t.Errorf("pcm = %v, want %v", gotPCM, pcm)
	}
}

func TestEncodeRejectsInvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	cases := []Format{
		{SampleRate: 9600, Channels: 0, BitDepth: 8},
		{SampleRate: 0, Channels: 1, BitDepth: 8},
		{SampleRate: 9600, Channels: 1, BitDepth: 0},
	}
	for _, f := range cases {
		if err := Encode(&buf, f, []byte{1}); err == nil {
			t.Errorf("Encode(%+v) = nil error, want one", f)
		}
	}
}
