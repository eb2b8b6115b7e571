package pipeline

import (
	"bytes"
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/ausocean/kcsmodem/codec/kcs"
	"github.com/ausocean/kcsmodem/mode"
)

func encodeToBuf(t *testing.T, p mode.Params, msg []byte, leader float64, cfg EncodeConfig) []byte {
	t.Helper()
	cfg.Params = p
	cfg.Leader = leader
	var buf bytes.Buffer
	if err := Encode(bytes.NewReader(msg), &buf, cfg); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf.Bytes()
}

func decodeBuf(t *testing.T, p mode.Params, audio []byte, cfg DecodeConfig) []byte {
	t.Helper()
	cfg.Params = p
	format := AudioFormat{BytesPerSample: 1, Channels: 1, SampleRate: p.SampleRate}
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Decode(ctx, bytes.NewReader(audio), format, &out, cfg); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out.Bytes()
}

// Scenario 1: spec.md §8 table row 1.
func TestScenario300BaudKCS(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.KCS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte{0x48, 0x49} // "HI"
	audio := encodeToBuf(t, p, msg, 0.05, EncodeConfig{Opts: kcs.DefaultOptions(kcs.Format8U)})
	got := decodeBuf(t, p, audio, DecodeConfig{})
	if !bytes.Equal(got, msg) {
		t.Errorf("decoded = % x, want % x", got, msg)
	}
}

// Scenario 2: CUTS forces bit 7 regardless of input.
func TestScenario300BaudCUTS(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.CUTS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	audio := encodeToBuf(t, p, []byte{0xC8}, 0.05, EncodeConfig{Opts: kcs.DefaultOptions(kcs.Format8U)})
	got := decodeBuf(t, p, audio, DecodeConfig{})
	want := []byte{0x48}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded = % x, want % x", got, want)
	}
}

// Scenario 3: 1200 baud, all-zero byte.
func TestScenario1200BaudKCS(t *testing.T) {
	p, err := mode.New(mode.Baud1200, mode.KCS, 48000, 0)
	if err != nil {
		t.Fatal(err)
	}
	audio := encodeToBuf(t, p, []byte{0x00}, 0.05, EncodeConfig{Opts: kcs.DefaultOptions(kcs.Format8U)})
	got := decodeBuf(t, p, audio, DecodeConfig{})
	want := []byte{0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded = % x, want % x", got, want)
	}
}

// Scenario 4: longer leader, decoder must still acquire lock and emit
// exactly the one encoded byte.
func TestScenarioLongLeaderAcquiresLock(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.KCS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	audio := encodeToBuf(t, p, []byte{0x41}, 0.5, EncodeConfig{Opts: kcs.DefaultOptions(kcs.Format8U)})
	got := decodeBuf(t, p, audio, DecodeConfig{})
	want := []byte{0x41}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded = % x, want %x", got, want)
	}
}

// Scenario 5: RS(n=8,k=4) round trip through the audio channel.
func TestScenarioRSRoundTrip(t *testing.T) {
	p, err := mode.New(mode.Baud1200, mode.KCS, 48000, 0)
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	var audio bytes.Buffer
	err = Encode(bytes.NewReader(msg), &audio, EncodeConfig{
		Params: p, Opts: kcs.DefaultOptions(kcs.Format8U), Leader: 0.05,
		RS: true, RSK: 4, RSECCLen: 4,
	})
	if err != nil {
		t.Fatal(err)
	}

	format := AudioFormat{BytesPerSample: 1, Channels: 1, SampleRate: p.SampleRate}

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Decode(ctx, bytes.NewReader(audio.Bytes()), format, &out, DecodeConfig{
		Params: p, RS: true, RSK: 4, RSECCLen: 4,
	}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), msg) {
		t.Errorf("decoded = % x, want % x", out.Bytes(), msg)
	}
}

// Scenario 6: FFT demodulator tolerates additive noise that a pure
// sign-change decoder need not necessarily survive.
func TestScenarioFFTRecoversNoisyByte(t *testing.T) {
	p, err := mode.New(mode.Baud300, mode.KCS, 9600, 0)
	if err != nil {
		t.Fatal(err)
	}
	audio := encodeToBuf(t, p, []byte{0x48}, 0.1, EncodeConfig{Opts: kcs.DefaultOptions(kcs.Format8U)})

	rnd := rand.New(rand.NewSource(1))
	noisy := make([]byte, len(audio))
	for i, b := range audio {
		n := (rnd.Float64() - 0.5) * 2 * 0.05 * 120 // 5% of the synthesizer's amplitude.
		v := int(b) + int(n)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		noisy[i] = byte(v)
	}

	got := decodeBuf(t, p, noisy, DecodeConfig{Demodulator: FFT})
	want := []byte{0x48}
	if !bytes.Equal(got, want) {
		t.Errorf("FFT decoded = % x, want % x", got, want)
	}
}

// TestMonitorBlocksOnFullMailbox verifies that a full mailbox blocks
// Send rather than dropping the frame (spec.md §5's ordering guarantee
// forbids dropping), and that the blocked Send unblocks once the reader
// drains a slot.
func TestMonitorBlocksOnFullMailbox(t *testing.T) {
	m := NewMonitor(1, nil)
	m.Send([]byte{1}) // fills the depth-1 mailbox.

	sent := make(chan struct{})
	go func() {
		m.Send([]byte{2}) // must block until a slot frees up.
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("Send returned before the mailbox had room")
	case <-time.After(20 * time.Millisecond):
	}

	got := <-m.Frames()
	if !bytes.Equal(got, []byte{1}) {
		t.Errorf("got %v, want [1]", got)
	}

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("blocked Send never unblocked after a slot freed up")
	}

	got = <-m.Frames()
	if !bytes.Equal(got, []byte{2}) {
		t.Errorf("got %v, want [2]", got)
	}
	m.Close()
}

// TestMonitorStopUnblocksSend verifies that Stop releases a Send call
// that would otherwise block forever on a mailbox nobody is draining.
func TestMonitorStopUnblocksSend(t *testing.T) {
	m := NewMonitor(1, nil)
	m.Send([]byte{1}) // fills the mailbox; nothing ever drains it.

	done := make(chan struct{})
	go func() {
		m.Send([]byte{2})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Send returned before Stop was called")
	case <-time.After(20 * time.Millisecond):
	}

	m.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not unblock the pending Send")
	}
}
