/*
NAME
  codec.go

DESCRIPTION
  codec.go implements a classical error-locating Reed-Solomon codec over
  GF(2^8): systematic generator-polynomial encoding, and
  Berlekamp-Massey/Chien/Forney decoding that corrects errors at unknown
  positions, mirroring the original implementation's reedsolo.RSCodec.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package rs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Codec encodes a message into an error-correcting codeword and decodes
// it back, reporting how many byte errors were corrected. Spec.md treats
// this as an external black-box collaborator; GF256Codec is this
// module's own implementation of that black box (see DESIGN.md for why
// no pack/ecosystem library fits).
type Codec interface {
	Encode(msg []byte) (codeword []byte, err error)
	Decode(codeword []byte) (msg []byte, errorsCorrected int, err error)
}

// ErrUncorrectable is returned by Decode when a codeword carries more
// byte errors than its parity can locate and correct.
var ErrUncorrectable = errors.New("rs: uncorrectable codeword")

// GF256Codec is a systematic Reed-Solomon codec over GF(2^8) with a
// fixed parity length (ECCLen = n - k) and a variable message length up
// to K bytes per call, matching rs_encode.py/rs_decode.py's "RSCodec
// supports variable k per call" behaviour.
type GF256Codec struct {
	K      int // maximum message length per call.
	ECCLen int // parity bytes appended per call (n - k).
}

// NewGF256Codec returns a codec for message length k and eccLen parity
// bytes. k+eccLen must not exceed 255, the largest codeword GF(2^8) can
// represent.
func NewGF256Codec(k, eccLen int) (*GF256Codec, error) {
	if k <= 0 || eccLen <= 0 {
		return nil, fmt.Errorf("rs: k and eccLen must be positive, got k=%d eccLen=%d", k, eccLen)
	}
	if k+eccLen > fieldSize {
		return nil, fmt.Errorf("rs: k+eccLen=%d exceeds GF(2^8) codeword limit of %d", k+eccLen, fieldSize)
	}
	return &GF256Codec{K: k, ECCLen: eccLen}, nil
}

// generatorPoly returns the degree-nsym generator polynomial
// prod_{i=0}^{nsym-1} (x - generator^i), generator=2, matching reedsolo's
// defaults (fcr=0, generator=2).
func generatorPoly(nsym int) []byte {
	g := []byte{1}
	for i := 0; i < nsym; i++ {
		g = gfPolyMul(g, []byte{1, gfPow(2, i)})
	}
	return g
}

// Encode appends k.ECCLen parity bytes to msg (which may be shorter than
// k.K, for the final partial block at end of stream) using systematic
// generator-polynomial encoding: codeword = msg || remainder(msg*x^nsym
// / generator).
func (c *GF256Codec) Encode(msg []byte) ([]byte, error) {
	if len(msg) == 0 {
		return nil, fmt.Errorf("rs: cannot encode an empty message")
	}
	if len(msg) > c.K {
		return nil, fmt.Errorf("rs: message length %d exceeds K=%d", len(msg), c.K)
	}
	gen := generatorPoly(c.ECCLen)
	padded := make([]byte, len(msg)+c.ECCLen)
	copy(padded, msg)
	_, remainder := gfPolyDiv(padded, gen)
	codeword := make([]byte, len(msg)+c.ECCLen)
	copy(codeword, msg)
	copy(codeword[len(msg):], remainder)
	return codeword, nil
}

// syndromes returns the 2*t syndrome values (plus a leading zero,
// matching reedsolo's indexing convention where synd[0] is unused
// padding so synd[i] aligns with exponent i-1 in the decode formulas
// below) for the received codeword.
func syndromes(codeword []byte, nsym int) []byte {
	out := make([]byte, nsym+1)
	for i := 0; i < nsym; i++ {
		out[i+1] = gfPolyEval(codeword, gfPow(2, i))
	}
	return out
}

func maxByte(p []byte) byte {
	var m byte
	for _, v := range p {
		if v > m {
			m = v
		}
	}
	return m
}

// errorLocator runs Berlekamp-Massey over the syndromes to find the
// error-locator polynomial sigma(x).
func errorLocator(synd []byte, nsym int) ([]byte, error) {
	errLoc := []byte{1}
	oldLoc := []byte{1}
	for i := 0; i < nsym; i++ {
		oldLoc = append(oldLoc, 0)
		delta := synd[i+1]
		for j := 1; j < len(errLoc); j++ {
			delta ^= gfMul(errLoc[len(errLoc)-1-j], synd[i+1-j])
		}
		if delta != 0 {
			if len(oldLoc) > len(errLoc) {
				newLoc := gfPolyScale(oldLoc, delta)
				oldLoc = gfPolyScale(errLoc, gfInverse(delta))
				errLoc = newLoc
			}
			errLoc = gfPolyAdd(errLoc, gfPolyScale(oldLoc, delta))
		}
	}
	// Strip leading zero coefficients (degree reduction).
	start := 0
	for start < len(errLoc)-1 && errLoc[start] == 0 {
		start++
	}
	errLoc = errLoc[start:]
	errs := len(errLoc) - 1
	if errs*2 > nsym {
		return nil, errors.WithStack(ErrUncorrectable)
	}
	return errLoc, nil
}

// chienSearch finds the roots of the error locator by brute-force
// evaluation at every field element, returning codeword byte positions
// (0 = first byte of codeword).
func chienSearch(errLoc []byte, n int) ([]int, error) {
	errs := len(errLoc) - 1
	var pos []int
	for i := 0; i < n; i++ {
		if gfPolyEval(errLoc, gfPow(2, i)) == 0 {
			pos = append(pos, n-1-i)
		}
	}
	if len(pos) != errs {
		return nil, errors.WithStack(ErrUncorrectable)
	}
	return pos, nil
}

// errataLocator builds prod (1 - generator^p * x) over the given
// codeword positions; this is the same polynomial shape as the
// error-locator but built directly from known positions instead of via
// Berlekamp-Massey, needed by the error-evaluator computation.
func errataLocator(coefPos []int) []byte {
	loc := []byte{1}
	for _, p := range coefPos {
		loc = gfPolyMul(loc, []byte{gfPow(2, p), 1})
	}
	return loc
}

func reversePoly(p []byte) []byte {
	out := make([]byte, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}

// correctErrata applies Forney's formula to compute error magnitudes at
// the located positions and returns the corrected codeword.
func correctErrata(codeword, synd []byte, errPos []int) ([]byte, error) {
	coefPos := make([]int, len(errPos))
	for i, p := range errPos {
		coefPos[i] = len(codeword) - 1 - p
	}
	errLoc := errataLocator(coefPos)
	nsym := len(errLoc) - 1

	// Error evaluator: omega(x) = synd(x)*errLoc(x) mod x^(nsym+1).
	product := gfPolyMul(reversePoly(synd), errLoc)
	divisor := make([]byte, nsym+2)
	divisor[0] = 1
	_, remainder := gfPolyDiv(product, divisor)

	x := make([]byte, len(coefPos))
	for i, p := range coefPos {
		x[i] = gfPow(2, p-fieldSize)
	}

	e := make([]byte, len(codeword))
	for i, xi := range x {
		xiInv := gfInverse(xi)
		var errLocPrime byte = 1
		for j, xj := range x {
			if j != i {
				errLocPrime = gfMul(errLocPrime, 1^gfMul(xiInv, xj))
			}
		}
		if errLocPrime == 0 {
			return nil, errors.Wrap(ErrUncorrectable, "zero error-locator derivative")
		}
		y := gfMul(xi, gfPolyEval(remainder, xiInv))
		mag := gfDiv(y, errLocPrime)
		e[errPos[i]] = mag
	}
	out := gfPolyAdd(codeword, e)
	return out, nil
}

// Decode corrects a copy of codeword against its trailing k.ECCLen parity
// bytes and returns the leading message bytes, plus how many byte errors
// were corrected. It returns ErrUncorrectable (wrapped) if the codeword
// carries more errors than its parity can locate.
func (c *GF256Codec) Decode(codeword []byte) ([]byte, int, error) {
	if len(codeword) <= c.ECCLen {
		return nil, 0, fmt.Errorf("rs: codeword length %d too short for ECCLen=%d", len(codeword), c.ECCLen)
	}
	msgLen := len(codeword) - c.ECCLen
	synd := syndromes(codeword, c.ECCLen)
	if maxByte(synd) == 0 {
		return append([]byte(nil), codeword[:msgLen]...), 0, nil
	}

	errLoc, err := errorLocator(synd, c.ECCLen)
	if err != nil {
		return nil, 0, err
	}
	errPos, err := chienSearch(reversePoly(errLoc), len(codeword))
	if err != nil {
		return nil, 0, err
	}
	corrected, err := correctErrata(codeword, synd, errPos)
	if err != nil {
		return nil, 0, err
	}
	if maxByte(syndromes(corrected, c.ECCLen)) != 0 {
		return nil, 0, errors.Wrap(ErrUncorrectable, "residual syndrome after correction")
	}
	return corrected[:msgLen], len(errPos), nil
}
