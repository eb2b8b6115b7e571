/*
NAME
  block.go

DESCRIPTION
  block.go implements the streaming block wrapper around a Codec:
  accumulate k bytes -> emit n (encode), accumulate n bytes -> emit k
  (decode), with partial-block handling at end of stream and a bounded
  read wait so a decoder never starves on a stalled input.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package rs implements the Reed-Solomon outer code: a GF(2^8)
// error-locating codec (gf256.go, codec.go) and the streaming block
// wrapper around it (block.go) that is actually exercised by the
// pipeline package.
package rs

import (
	"context"
	"fmt"
	"io"
	"time"
)

// BlockError is written to a BlockDecoder's diagnostic channel whenever
// a codeword cannot be corrected; it never aborts the stream.
type BlockError struct {
	Offset int // byte offset of the start of the failed block in the input.
	Err    error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("rs: uncorrectable block at offset %d: %v", e.Offset, e.Err)
}

// BlockEncoder accumulates exactly Codec.K bytes from a byte source and
// emits one encoded codeword at a time, flushing a short final block at
// end of stream.
type BlockEncoder struct {
	codec *GF256Codec
}

// NewBlockEncoder returns a BlockEncoder wrapping codec.
func NewBlockEncoder(codec *GF256Codec) *BlockEncoder {
	return &BlockEncoder{codec: codec}
}

// Encode reads src to completion, encoding every full block of Codec.K
// bytes (and one final partial block, if any) and writing each resulting
// codeword to sink.
func (e *BlockEncoder) Encode(src io.Reader, sink io.Writer) error {
	block := make([]byte, e.codec.K)
	for {
		n, err := io.ReadFull(src, block)
		if n > 0 {
			codeword, encErr := e.codec.Encode(block[:n])
			if encErr != nil {
				return encErr
			}
			if _, werr := sink.Write(codeword); werr != nil {
				return fmt.Errorf("rs: writing codeword: %w", werr)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("rs: reading message block: %w", err)
		}
	}
}

// BlockDecoder accumulates exactly Codec.K+Codec.ECCLen bytes from a
// codeword source and emits the recovered message bytes for each block,
// reporting uncorrectable blocks to diag without aborting the stream.
type BlockDecoder struct {
	codec *GF256Codec

	// ReadTimeout bounds each wait for the next byte so the decoder never
	// blocks indefinitely on a stalled source; spec.md calls this the 1s
	// read deadline that lets an interrupt flush the final partial block.
	ReadTimeout time.Duration
}

// NewBlockDecoder returns a BlockDecoder wrapping codec with the default
// 1-second read deadline.
func NewBlockDecoder(codec *GF256Codec) *BlockDecoder {
	return &BlockDecoder{codec: codec, ReadTimeout: time.Second}
}

// Decode reads src until EOF or ctx is cancelled, decoding every full
// codeword of Codec.K+Codec.ECCLen bytes (and one final partial
// codeword, decoded against its actual byte count) and writing recovered
// message bytes to sink. Uncorrectable blocks are reported to diag (if
// non-nil) as a *BlockError and skipped; they never abort the stream.
// On ctx cancellation, any in-flight partial block is flushed with
// best-effort correction before returning ctx.Err().
func (d *BlockDecoder) Decode(ctx context.Context, src io.Reader, sink io.Writer, diag chan<- *BlockError) error {
	byteCh := make(chan byte)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		buf := make([]byte, 1)
		for {
			_, err := src.Read(buf)
			if err != nil {
				select {
				case errCh <- err:
				case <-done:
				}
				return
			}
			select {
			case byteCh <- buf[0]:
			case <-done:
				return
			}
		}
	}()

	n := d.codec.K + d.codec.ECCLen
	block := make([]byte, 0, n)
	offset := 0

	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		err := d.decodeBlock(block, offset, sink, diag)
		offset += len(block)
		block = block[:0]
		return err
	}

	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			if err := flush(); err != nil {
				return err
			}
			return ctx.Err()

		case b := <-byteCh:
			block = append(block, b)
			if len(block) == n {
				if err := flush(); err != nil {
					return err
				}
			}

		case err := <-errCh:
			if ferr := flush(); ferr != nil {
				return ferr
			}
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("rs: reading codeword block: %w", err)

		case <-time.After(timeout):
			// Idle tick: nothing to do but loop, giving ctx cancellation a
			// periodic chance to be observed even when the source itself
			// never errors or produces another byte.
		}
	}
}

// decodeBlock decodes one accumulated block (full or partial) and writes
// the recovered bytes to sink, or reports a BlockError on failure. A
// write failure on sink is fatal (spec.md §7: a closed/broken sink
// terminates the stream) and is returned to the caller; an uncorrectable
// codeword is not fatal and is only reported to diag.
func (d *BlockDecoder) decodeBlock(block []byte, offset int, sink io.Writer, diag chan<- *BlockError) error {
	msg, _, err := d.codec.Decode(block)
	if err != nil {
		if diag != nil {
			diag <- &BlockError{Offset: offset, Err: err}
		}
		return nil
	}
	if _, err := sink.Write(msg); err != nil {
		return fmt.Errorf("rs: writing decoded block: %w", err)
	}
	return nil
}
