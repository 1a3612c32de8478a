// Package discovery advertises and browses for acoustic-modem peers on
// the local network over mDNS-SD, so two hosts can agree on which one
// opens the TUN session first (spec §9 session setup) before either
// touches the acoustic medium.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const serviceType = "_aethernet._udp"

// Peer describes one discovered acoustic-modem host.
type Peer struct {
	Name string
	Host string
	Port int
}

// Advertise publishes this host as an acoustic-modem peer under name,
// running until ctx is cancelled.
func Advertise(ctx context.Context, name string, port int, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	cfg := dnssd.Config{
		Name: name,
		Type: serviceType,
		Port: port,
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("discovery: building service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("discovery: creating responder: %w", err)
	}
	handle, err := responder.Add(service)
	if err != nil {
		return fmt.Errorf("discovery: adding service: %w", err)
	}

	logger.Info("advertising acoustic-modem peer", "name", name, "port", port)
	go func() {
		<-ctx.Done()
		responder.Remove(handle)
	}()
	return responder.Respond(ctx)
}

// Browse watches for other acoustic-modem peers until ctx is cancelled,
// delivering each one found.
func Browse(ctx context.Context, logger *log.Logger) (<-chan Peer, error) {
	if logger == nil {
		logger = log.Default()
	}

	peers := make(chan Peer)
	add := func(e dnssd.BrowseEntry) {
		p := Peer{Name: e.Name, Host: e.IPs[0].String(), Port: e.Port}
		logger.Debug("peer discovered", "name", p.Name, "host", p.Host, "port", p.Port)
		select {
		case peers <- p:
		case <-ctx.Done():
		}
	}
	remove := func(e dnssd.BrowseEntry) {
		logger.Debug("peer vanished", "name", e.Name)
	}

	go func() {
		defer close(peers)
		if err := dnssd.LookupType(ctx, serviceType, add, remove); err != nil {
			logger.Error("discovery: browsing stopped", "err", err)
		}
	}()
	return peers, nil
}
