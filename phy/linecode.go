package phy

import (
	"fmt"
	"math/bits"
)

// maxRunLength is the standard 8B/10B bound on consecutive identical bits
// within a codeword, used here as the run-length constraint for the
// generated table (see DESIGN.md, Open Question 4).
const maxRunLength = 5

var (
	encodeTable [256]uint16 // byte -> 10-bit codeword
	decodeTable [1024]int16 // 10-bit codeword -> byte, -1 if illegal
)

func init() {
	for i := range decodeTable {
		decodeTable[i] = -1
	}

	var n int
	for word := 0; word < 1024 && n < 256; word++ {
		if !isBalanced(word) || !runLengthOK(word) {
			continue
		}
		encodeTable[n] = uint16(word)
		decodeTable[word] = int16(n)
		n++
	}
	if n != 256 {
		panic(fmt.Sprintf("phy: line code table generation found only %d legal codewords, need 256", n))
	}
}

// isBalanced reports whether a 10-bit word has a disparity of at most 2,
// i.e. its popcount is 4, 5 or 6. The bound is per codeword only: running
// disparity is not tracked across symbols, so a stream of +2 (or -2)
// codewords drifts away from DC balance.
func isBalanced(word int) bool {
	ones := bits.OnesCount16(uint16(word) & 0x3ff)
	return ones >= 4 && ones <= 6
}

// runLengthOK reports whether word, read as 10 bits, has no run of more
// than maxRunLength consecutive identical bits.
func runLengthOK(word int) bool {
	run := 1
	prev := (word >> 9) & 1
	for i := 8; i >= 0; i-- {
		bit := (word >> uint(i)) & 1
		if bit == prev {
			run++
			if run > maxRunLength {
				return false
			}
		} else {
			run = 1
			prev = bit
		}
	}
	return true
}

// LineEncode maps a byte to its 10-bit 8B/10B codeword.
func LineEncode(b byte) uint16 {
	return encodeTable[b]
}

// LineDecode maps a 10-bit codeword back to its byte, or returns
// ErrLineDecode if the word is not in the legal set (spec §4.A). The
// receiver treats this as evidence of a misdetected preamble.
func LineDecode(word uint16) (byte, error) {
	v := decodeTable[word&0x3ff]
	if v < 0 {
		return 0, fmt.Errorf("%w: codeword %#x not in legal set", ErrLineDecode, word)
	}
	return byte(v), nil
}
