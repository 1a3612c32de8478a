package phy

import "encoding/binary"

// headerSize is the fixed on-wire size of a PhysicalHeader (spec §3).
const headerSize = 4

// maxPayload is the largest value Size may hold: the header packs Size
// into 31 bits with Done as the high bit of the final byte.
const maxPayload = 1<<31 - 1

// PhysicalHeader is the 4-byte fixed-layout fragment header: a 31-bit
// payload byte count and a 1-bit last-fragment marker, packed
// little-endian with Done in the high bit of the word (spec §3, §6).
type PhysicalHeader struct {
	Size uint32 // > 0, <= configured payload
	Done bool   // true marks the final fragment of a message
}

// Encode writes the header's 4-byte wire form into buf (len(buf) must be
// at least headerSize).
func (h PhysicalHeader) Encode(buf []byte) {
	word := h.Size & maxPayload
	if h.Done {
		word |= 1 << 31
	}
	binary.LittleEndian.PutUint32(buf, word)
}

// DecodePhysicalHeader reads a PhysicalHeader from its 4-byte wire form.
func DecodePhysicalHeader(buf []byte) PhysicalHeader {
	word := binary.LittleEndian.Uint32(buf)
	return PhysicalHeader{
		Size: word & maxPayload,
		Done: word&(1<<31) != 0,
	}
}
