/*
NAME
  wavfile.go

DESCRIPTION
  wavfile.go implements WAV container I/O for the modem's file-based
  encode and decode sessions: a fast hand-rolled encoder for the common
  case (any bit depth/channel count known up front, no seek required)
  and a general decode path built on go-audio/wav that accepts any
  channel count or bit depth a WAV container declares.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wavfile provides WAV container read/write for the modem's
// file-based encode and decode sessions: a fast encode-only path for the
// synthesizer's own output, and a general decode path that accepts any
// channel count or bit depth a WAV file declares.
package wavfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// Format describes a WAV container's PCM sample geometry.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int // bits per sample.
}

// BytesPerSample returns the container's sample width in bytes.
func (f Format) BytesPerSample() int { return (f.BitDepth + 7) / 8 }

const pcmFormat = 1 // WAVE_FORMAT_PCM.

var (
	errInvalidChannels = fmt.Errorf("wavfile: invalid or no channel count")
	errInvalidRate     = fmt.Errorf("wavfile: invalid or no sample rate")
	errInvalidDepth    = fmt.Errorf("wavfile: invalid or no bit depth")
)

// Encode writes pcm (raw little-endian sample bytes, f.BytesPerSample()
// bytes per channel sample, channels interleaved) as a complete WAV file
// to sink, building the canonical 44-byte header by hand. Unlike the
// decode path below, the whole PCM payload must be in hand up front
// since the header carries the final byte counts and sink need not be
// seekable — the same constraint the synthesizer's own Synthesize
// (codec/kcs) already works under for WAV output.
func Encode(sink io.Writer, f Format, pcm []byte) error {
	if f.Channels <= 0 {
		return errInvalidChannels
	}
	if f.SampleRate <= 0 {
		return errInvalidRate
	}
	if f.BitDepth <= 0 {
		return errInvalidDepth
	}

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(pcm)+36))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], pcmFormat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	bps := f.BytesPerSample()
	binary.LittleEndian.PutUint32(header[28:32], uint32(f.SampleRate*f.Channels*bps))
	binary.LittleEndian.PutUint16(header[32:34], uint16(f.Channels*bps))
	binary.LittleEndian.PutUint16(header[34:36], uint16(f.BitDepth))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := sink.Write(header); err != nil {
		return fmt.Errorf("wavfile: writing header: %w", err)
	}
	if _, err := sink.Write(pcm); err != nil {
		return fmt.Errorf("wavfile: writing samples: %w", err)
	}
	return nil
}

// Decode reads a complete WAV file from src and returns its declared
// format plus the raw sample bytes, reconstructed little-endian at
// exactly the width the container declares (1 byte unsigned for 8-bit
// PCM, 2/3/4 bytes signed for 16/24/32-bit PCM) — the same byte layout
// demod/signchange.Demod.Feed and demod/fft.Demod expect regardless of
// the container's own channel count or bit depth, per spec.md §6's "any
// width the container declares".
func Decode(src io.Reader) (Format, []byte, error) {
	d := wav.NewDecoder(src)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Format{}, nil, fmt.Errorf("wavfile: decoding WAV: %w", err)
	}
	if !d.WasPCMAccessed() {
		return Format{}, nil, fmt.Errorf("wavfile: no PCM data chunk found")
	}
	f := Format{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}
	if f.Channels <= 0 {
		return Format{}, nil, errInvalidChannels
	}
	if f.SampleRate <= 0 {
		return Format{}, nil, errInvalidRate
	}
	if f.BitDepth <= 0 {
		return Format{}, nil, errInvalidDepth
	}

	bps := f.BytesPerSample()
	pcm := make([]byte, len(buf.Data)*bps)
	for i, v := range buf.Data {
		off := i * bps
		switch f.BitDepth {
		case 8:
			pcm[off] = byte(v)
		case 16:
			binary.LittleEndian.PutUint16(pcm[off:], uint16(int16(v)))
		case 24:
			u := uint32(int32(v))
			pcm[off], pcm[off+1], pcm[off+2] = byte(u), byte(u>>8), byte(u>>16)
		case 32:
			binary.LittleEndian.PutUint32(pcm[off:], uint32(int32(v)))
		default:
			return Format{}, nil, fmt.Errorf("%w: unsupported bit depth %d", errInvalidDepth, f.BitDepth)
		}
	}
	return f, pcm, nil
}
