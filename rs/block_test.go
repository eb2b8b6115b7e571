package rs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

// failingWriter returns err on every Write, simulating a closed/broken
// sink downstream of the decoder.
type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestBlockEncoderDecoderRoundTrip(t *testing.T) {
	codec, err := NewGF256Codec(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	enc := NewBlockEncoder(codec)

	msg := []byte("the quick brown fox jumps over the lazy dog")
	var encoded bytes.Buffer
	if err := enc.Encode(bytes.NewReader(msg), &encoded); err != nil {
		t.Fatal(err)
	}

	dec := NewBlockDecoder(codec)
	dec.ReadTimeout = 20 * time.Millisecond

	var decoded bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := dec.Decode(ctx, &encoded, &decoded, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded.Bytes(), msg) {
		t.Errorf("round trip = %q, want %q", decoded.Bytes(), msg)
	}
}

func TestBlockDecoderReportsUncorrectableBlock(t *testing.T) {
	codec, err := NewGF256Codec(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	enc := NewBlockEncoder(codec)
	msg := []byte("12345678")
	var encoded bytes.Buffer
	if err := enc.Encode(bytes.NewReader(msg), &encoded); err != nil {
		t.Fatal(err)
	}
	corrupt := encoded.Bytes()
	corrupt[0] ^= 0xFF
	corrupt[1] ^= 0xFF
	corrupt[2] ^= 0xFF

	dec := NewBlockDecoder(codec)
	dec.ReadTimeout = 20 * time.Millisecond
	diag := make(chan *BlockError, 1)

	var decoded bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := dec.Decode(ctx, bytes.NewReader(corrupt), &decoded, diag); err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-diag:
		if e.Offset != 0 {
			t.Errorf("BlockError.Offset = %d, want 0", e.Offset)
		}
	default:
		t.Error("expected an uncorrectable block to be reported on diag")
	}
	if decoded.Len() != 0 {
		t.Errorf("expected no recovered bytes for an uncorrectable block, got %q", decoded.Bytes())
	}
}

func TestBlockDecoderPropagatesSinkWriteError(t *testing.T) {
	codec, err := NewGF256Codec(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	enc := NewBlockEncoder(codec)
	msg := []byte("the quick brown fox jumps over the lazy dog")
	var encoded bytes.Buffer
	if err := enc.Encode(bytes.NewReader(msg), &encoded); err != nil {
		t.Fatal(err)
	}

	dec := NewBlockDecoder(codec)
	dec.ReadTimeout = 20 * time.Millisecond

	wantErr := errors.New("sink closed")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = dec.Decode(ctx, &encoded, failingWriter{err: wantErr}, nil)
	if err == nil {
		t.Fatal("expected an error from a failing sink, got nil")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("Decode error = %v, want it to wrap %v", err, wantErr)
	}
}

func TestBlockEncoderFlushesPartialFinalBlock(t *testing.T) {
	codec, err := NewGF256Codec(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	enc := NewBlockEncoder(codec)
	msg := []byte("12345678ab") // one full 8-byte block + a 2-byte partial block.
	var encoded bytes.Buffer
	if err := enc.Encode(bytes.NewReader(msg), &encoded); err != nil {
		t.Fatal(err)
	}
	want := (8 + 4) + (2 + 4)
	if encoded.Len() != want {
		t.Errorf("encoded length = %d, want %d", encoded.Len(), want)
	}
}
