package phy

// ByteSequence is an ordered sequence of octets supporting append, span
// views and structural append of fixed-layout headers (spec §3 "Byte
// sequence"). It backs the receiver's reassembled-message buffer.
type ByteSequence struct {
	data []byte
}

// NewByteSequence returns an empty sequence with the given capacity hint.
func NewByteSequence(capacityHint int) *ByteSequence {
	return &ByteSequence{data: make([]byte, 0, capacityHint)}
}

// Append adds a single byte.
func (s *ByteSequence) Append(b byte) {
	s.data = append(s.data, b)
}

// AppendSpan appends a whole byte slice.
func (s *ByteSequence) AppendSpan(p []byte) {
	s.data = append(s.data, p...)
}

// AppendHeader structurally appends a fixed-layout PhysicalHeader as its
// 4-byte wire encoding.
func (s *ByteSequence) AppendHeader(h PhysicalHeader) {
	var buf [headerSize]byte
	h.Encode(buf[:])
	s.data = append(s.data, buf[:]...)
}

// Len reports the number of bytes held.
func (s *ByteSequence) Len() int {
	return len(s.data)
}

// Span returns a view of the bytes in [i, j).
func (s *ByteSequence) Span(i, j int) []byte {
	return s.data[i:j]
}

// Bytes returns the full contents. Callers must not retain it across Reset.
func (s *ByteSequence) Bytes() []byte {
	return s.data
}

// Reset clears the sequence for reuse, preserving the backing array.
func (s *ByteSequence) Reset() {
	s.data = s.data[:0]
}
