// Package nic attaches the acoustic modem to the host's network stack: a
// Linux TUN virtual interface carrying IP packets in each direction of
// phy.Pipeline, realizing spec §6's "virtual NIC" contract.
package nic

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

const (
	tunDevicePath = "/dev/net/tun"
	ifReqSize     = unix.IFNAMSIZ + 64
)

// TUN is an open Linux TUN interface: reading from it yields outbound IP
// packets the host wants sent over the acoustic link; writing to it
// delivers packets received over the link to the host's network stack.
type TUN struct {
	log  *log.Logger
	file *os.File
	name string
}

// OpenTUN creates (or attaches to) a TUN interface named name, assigns it
// cidr (e.g. "10.13.37.1/24") and brings it up.
func OpenTUN(name, cidr string, mtu int, logger *log.Logger) (*TUN, error) {
	if logger == nil {
		logger = log.Default()
	}

	f, err := os.OpenFile(tunDevicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("nic: opening %s: %w", tunDevicePath, err)
	}

	var ifr [ifReqSize]byte
	copy(ifr[:unix.IFNAMSIZ], name)
	// IFF_TUN (no ethernet header) | IFF_NO_PI (no packet-info prefix).
	const iffTUN, iffNoPI = 0x0001, 0x1000
	flags := uint16(iffTUN | iffNoPI)
	ifr[unix.IFNAMSIZ] = byte(flags)
	ifr[unix.IFNAMSIZ+1] = byte(flags >> 8)

	if err := ioctl(f.Fd(), unix.TUNSETIFF, &ifr[0]); err != nil {
		f.Close()
		return nil, fmt.Errorf("nic: TUNSETIFF: %w", err)
	}

	t := &TUN{log: logger, file: f, name: name}

	link, err := netlink.LinkByName(name)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("nic: looking up link %s: %w", name, err)
	}
	if mtu > 0 {
		if err := netlink.LinkSetMTU(link, mtu); err != nil {
			f.Close()
			return nil, fmt.Errorf("nic: setting mtu: %w", err)
		}
	}

	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("nic: parsing address %q: %w", cidr, err)
	}
	if err := netlink.AddrAdd(link, addr); err != nil {
		f.Close()
		return nil, fmt.Errorf("nic: assigning address: %w", err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		f.Close()
		return nil, fmt.Errorf("nic: bringing link up: %w", err)
	}

	logger.Info("tun interface up", "name", name, "addr", cidr, "mtu", mtu)
	return t, nil
}

// ReadPacket blocks until one IP packet is available and returns it.
func (t *TUN) ReadPacket(buf []byte) (int, error) {
	return t.file.Read(buf)
}

// WritePacket injects one IP packet into the host's network stack.
func (t *TUN) WritePacket(pkt []byte) error {
	_, err := t.file.Write(pkt)
	return err
}

// Name returns the interface name that was passed to OpenTUN.
func (t *TUN) Name() string {
	return t.name
}

// Close releases the TUN file descriptor. The interface itself is torn
// down by the kernel once the descriptor is released (no persistent
// flag was requested).
func (t *TUN) Close() error {
	return t.file.Close()
}
