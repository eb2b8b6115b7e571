/*
NAME
  gf256.go

DESCRIPTION
  gf256.go implements GF(2^8) field and polynomial arithmetic over the
  primitive polynomial 0x11d, the same field reedsolo (the original
  implementation's Reed-Solomon library) uses by default.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package rs

// primPoly is the primitive polynomial generating GF(2^8), matching the
// original implementation's reedsolo library default.
const primPoly = 0x11d

// fieldSize is the number of non-zero elements in GF(2^8).
const fieldSize = 255

var gfExp [fieldSize * 2]byte
var gfLog [256]byte

func init() {
	x := 1
	for i := 0; i < fieldSize; i++ {
		gfExp[i] = byte(x)
		gfLog[x] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= primPoly
		}
	}
	for i := fieldSize; i < len(gfExp); i++ {
		gfExp[i] = gfExp[i-fieldSize]
	}
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[int(gfLog[a])+int(gfLog[b])]
}

func gfDiv(a, b byte) byte {
	if b == 0 {
		panic("rs: division by zero in GF(2^8)")
	}
	if a == 0 {
		return 0
	}
	return gfExp[(int(gfLog[a])+fieldSize-int(gfLog[b]))%fieldSize]
}

// gfPow returns base^power in GF(2^8); power may be negative.
func gfPow(base byte, power int) byte {
	if base == 0 {
		if power == 0 {
			return 1
		}
		return 0
	}
	p := (int(gfLog[base]) * power) % fieldSize
	if p < 0 {
		p += fieldSize
	}
	return gfExp[p]
}

func gfInverse(a byte) byte {
	return gfExp[fieldSize-int(gfLog[a])]
}

// gfPolyScale multiplies every coefficient of p by x.
func gfPolyScale(p []byte, x byte) []byte {
	out := make([]byte, len(p))
	for i, c := range p {
		out[i] = gfMul(c, x)
	}
	return out
}

// gfPolyAdd adds (XORs) two polynomials, coefficients ordered highest
// degree first.
func gfPolyAdd(p, q []byte) []byte {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make([]byte, n)
	for i, c := range p {
		out[i+n-len(p)] = c
	}
	for i, c := range q {
		out[i+n-len(q)] ^= c
	}
	return out
}

// gfPolyMul multiplies two polynomials in GF(2^8).
func gfPolyMul(p, q []byte) []byte {
	out := make([]byte, len(p)+len(q)-1)
	for j, qc := range q {
		if qc == 0 {
			continue
		}
		for i, pc := range p {
			out[i+j] ^= gfMul(pc, qc)
		}
	}
	return out
}

// gfPolyEval evaluates p(x) using Horner's method.
func gfPolyEval(p []byte, x byte) byte {
	var y byte
	if len(p) > 0 {
		y = p[0]
	}
	for _, c := range p[1:] {
		y = gfMul(y, x) ^ c
	}
	return y
}

// gfPolyDiv performs polynomial long division in GF(2^8), returning
// (quotient, remainder).
func gfPolyDiv(dividend, divisor []byte) (quotient, remainder []byte) {
	msgOut := make([]byte, len(dividend))
	copy(msgOut, dividend)
	for i := 0; i <= len(dividend)-len(divisor); i++ {
		coef := msgOut[i]
		if coef == 0 {
			continue
		}
		for j := 1; j < len(divisor); j++ {
			if divisor[j] != 0 {
				msgOut[i+j] ^= gfMul(divisor[j], coef)
			}
		}
	}
	split := len(dividend) - len(divisor) + 1
	return msgOut[:split], msgOut[split:]
}
