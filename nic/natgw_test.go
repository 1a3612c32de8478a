package nic

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildUDPPacket constructs a minimal IPv4+UDP packet (no payload) with
// the given source/dest ports and a non-zero checksum placeholder.
func buildUDPPacket(srcPort, dstPort uint16) []byte {
	pkt := make([]byte, 28) // 20 IPv4 + 8 UDP
	pkt[0] = 0x45           // version 4, IHL 5
	pkt[9] = protoUDP
	binary.BigEndian.PutUint16(pkt[20:], srcPort)
	binary.BigEndian.PutUint16(pkt[22:], dstPort)
	binary.BigEndian.PutUint16(pkt[24:], 8) // UDP length
	binary.BigEndian.PutUint16(pkt[26:], 0xABCD) // fake checksum, non-zero
	return pkt
}

func TestPortMapRewriteSourcePort(t *testing.T) {
	pkt := buildUDPPacket(1234, 80)
	m := PortMap{From: 1234, To: 5678}

	rewrote, err := m.RewriteSourcePort(pkt)
	require.NoError(t, err)
	assert.True(t, rewrote)
	assert.Equal(t, uint16(5678), binary.BigEndian.Uint16(pkt[20:]))
}

func TestPortMapRewriteDestPort(t *testing.T) {
	pkt := buildUDPPacket(1234, 80)
	m := PortMap{From: 80, To: 8080}

	rewrote, err := m.RewriteDestPort(pkt)
	require.NoError(t, err)
	assert.True(t, rewrote)
	assert.Equal(t, uint16(8080), binary.BigEndian.Uint16(pkt[22:]))
}

func TestPortMapNoMatchLeavesPacketUntouched(t *testing.T) {
	pkt := buildUDPPacket(1234, 80)
	original := append([]byte(nil), pkt...)
	m := PortMap{From: 9999, To: 1111}

	rewrote, err := m.RewriteSourcePort(pkt)
	require.NoError(t, err)
	assert.False(t, rewrote)
	assert.Equal(t, original, pkt)
}

func TestPortMapRejectsNonIPv4(t *testing.T) {
	pkt := []byte{0x60, 0, 0, 0}
	m := PortMap{From: 1, To: 2}
	_, err := m.RewriteSourcePort(pkt)
	assert.Error(t, err)
}

func TestPortMapSkipsUnchecksummedUDP(t *testing.T) {
	pkt := buildUDPPacket(1234, 80)
	binary.BigEndian.PutUint16(pkt[26:], 0) // checksum disabled
	m := PortMap{From: 1234, To: 5678}

	rewrote, err := m.RewriteSourcePort(pkt)
	require.NoError(t, err)
	assert.True(t, rewrote)
	assert.Zero(t, binary.BigEndian.Uint16(pkt[26:]), "checksum should remain disabled (0), not be recomputed")
}
