package phy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestPhysicalHeaderRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := PhysicalHeader{
			Size: uint32(rapid.IntRange(0, maxPayload).Draw(t, "size")),
			Done: rapid.Bool().Draw(t, "done"),
		}
		var buf [headerSize]byte
		h.Encode(buf[:])
		got := DecodePhysicalHeader(buf[:])
		assert.Equal(t, h, got)
	})
}

func TestPhysicalHeaderDoneBitDoesNotLeakIntoSize(t *testing.T) {
	h := PhysicalHeader{Size: maxPayload, Done: true}
	var buf [headerSize]byte
	h.Encode(buf[:])
	got := DecodePhysicalHeader(buf[:])
	assert.Equal(t, uint32(maxPayload), got.Size)
	assert.True(t, got.Done)
}

func TestPhysicalHeaderLittleEndian(t *testing.T) {
	h := PhysicalHeader{Size: 1, Done: false}
	var buf [headerSize]byte
	h.Encode(buf[:])
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, buf[:])
}
