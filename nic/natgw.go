package nic

import (
	"encoding/binary"
	"fmt"
)

// IP protocol numbers whose port fields rewrite knows how to patch.
const (
	protoTCP = 6
	protoUDP = 17
)

// PortMap rewrites one side of a TCP/UDP connection's source or
// destination port, a minimal stand-in for full NAT state tracking
// (spec.md §1: "optionally performs IP-level rewriting... in transit").
// It does not track connections or recompute checksums beyond the
// incremental update required by the single field it touches.
type PortMap struct {
	From uint16
	To   uint16
}

// RewriteSourcePort finds PortMap.From as the source port of an IPv4
// TCP/UDP packet in pkt and replaces it with PortMap.To in place,
// fixing up the TCP/UDP checksum incrementally. It reports whether a
// rewrite was applied; a non-matching packet is returned unchanged.
func (m PortMap) RewriteSourcePort(pkt []byte) (bool, error) {
	return m.rewrite(pkt, true)
}

// RewriteDestPort is RewriteSourcePort's destination-port counterpart.
func (m PortMap) RewriteDestPort(pkt []byte) (bool, error) {
	return m.rewrite(pkt, false)
}

func (m PortMap) rewrite(pkt []byte, source bool) (bool, error) {
	if len(pkt) < 20 || pkt[0]>>4 != 4 {
		return false, fmt.Errorf("nic: not an IPv4 packet")
	}
	ihl := int(pkt[0]&0x0f) * 4
	if len(pkt) < ihl+4 {
		return false, fmt.Errorf("nic: truncated IPv4 header")
	}
	proto := pkt[9]
	if proto != protoTCP && proto != protoUDP {
		return false, nil
	}

	portOff := ihl
	if !source {
		portOff += 2
	}
	if len(pkt) < portOff+2 {
		return false, fmt.Errorf("nic: truncated transport header")
	}

	cur := binary.BigEndian.Uint16(pkt[portOff:])
	if cur != m.From {
		return false, nil
	}
	binary.BigEndian.PutUint16(pkt[portOff:], m.To)

	if proto == protoTCP {
		fixChecksum16(pkt, ihl+16, cur, m.To)
	} else {
		fixChecksum16(pkt, ihl+6, cur, m.To)
	}
	return true, nil
}

// fixChecksum16 applies RFC 1624's incremental checksum update at
// checksumOff for a single 16-bit field changing from old to new,
// avoiding a full packet recompute.
func fixChecksum16(pkt []byte, checksumOff int, old, new uint16) {
	if checksumOff+2 > len(pkt) {
		return
	}
	existing := binary.BigEndian.Uint16(pkt[checksumOff:])
	if existing == 0 {
		return // UDP checksum disabled; leave it that way
	}
	sum := uint32(existing)
	sum = sum + uint32(old) + uint32(^new)
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	binary.BigEndian.PutUint16(pkt[checksumOff:], uint16(sum))
}
