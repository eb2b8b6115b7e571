/*
NAME
  pipeline.go

DESCRIPTION
  pipeline.go defines the shared types of the streaming encode/decode
  pipeline: the audio format descriptor passed between a device adapter
  (device/wavfile, device/liveaudio) and the demodulator stages, and the
  demodulator selector.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pipeline wires the modem's named stages (spec.md §2) into the
// two streaming directions: pipeline.Encode (byte source -> [RS encode]
// -> framer -> synthesizer -> audio sink) and pipeline.Decode (audio
// source -> extractor -> demodulator -> deframer -> [RS decode] -> byte
// sink), grounded on revid.Revid's single-assembly-point orchestration
// idiom but simplified to these two linear directions.
package pipeline

import "encoding/binary"

// AudioFormat describes the raw PCM geometry of a decode session's audio
// source: bytes per sample, channel count and sample rate, as declared
// by device/wavfile.Decode or negotiated by device/liveaudio.Open.
type AudioFormat struct {
	BytesPerSample int
	Channels       int
	SampleRate     uint
}

func (f AudioFormat) stride() int { return f.BytesPerSample * f.Channels }

// DemodKind selects which of the two demodulators (spec.md §4.C/§4.D) a
// Decode session uses.
type DemodKind int

const (
	SignChange DemodKind = iota
	FFT
)

// extractFloat converts a chunk of raw interleaved PCM frames into one
// float64 sample per frame, taking only the leftmost channel and decoding
// the whole sample value (not just its MSB) for the FFT demodulator;
// unlike codec/pcm.StereoToMono (which only handles
// codec/pcm's S16_LE/S32_LE ALSA formats), this handles any byte width a
// WAV container may declare (8/16/24/32-bit).
func extractFloat(raw []byte, bps, channels int) []float64 {
	stride := bps * channels
	if stride <= 0 || len(raw) < stride {
		return nil
	}
	n := len(raw) / stride
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		off := i * stride
		out[i] = sampleValue(raw[off : off+bps])
	}
	return out
}

// sampleValue decodes one little-endian PCM sample of the given width:
// unsigned, center-subtracted for 8-bit (the WAV convention), signed for
// 16/24/32-bit.
func sampleValue(b []byte) float64 {
	switch len(b) {
	case 1:
		return float64(b[0]) - 128
	case 2:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		u := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		if u&0x800000 != 0 {
			u |= 0xFF000000
		}
		return float64(int32(u))
	case 4:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}
