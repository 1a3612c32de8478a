package phy

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the immutable, validated options of spec §3 "Configuration".
// Construct it with NewConfig, never by literal — that is what enforces
// the payload/packetBits byte-alignment invariant.
type Config struct {
	Amplitude     float32 // [0,1], peak absolute sample value
	Threshold     float32 // >=0, preamble correlation threshold
	BusyThreshold float32 // >=0, sample-energy busy-sensing threshold (Open Question 2)
	Payload       int     // >=1, < 2^31, max bytes per fragment
	CarrierSize   int     // >=1, samples per chip
	InterSize     int     // >=0, samples of silence bracketing each packet
	Preamble      []float32

	packetBits int // derived: (Payload+1+headerSize)*10
}

// PacketBits reports the on-wire chip count of a full (max-size) fragment.
func (c Config) PacketBits() int {
	return c.packetBits
}

// RawConfig is the JSON shape of the configuration file (spec §6): keys
// map directly to the options above; preamble is loaded separately from
// PreambleFile's own text format. Name/IP and the application-level keys
// (delay, inputFile, outputFile, time) belong to the host, not the core,
// and are intentionally absent here.
type RawConfig struct {
	Amplitude     float32 `json:"amplitude"`
	Threshold     float32 `json:"threshold"`
	BusyThreshold float32 `json:"busyThreshold,omitempty"`
	Payload       int     `json:"payload"`
	CarrierSize   int     `json:"carrierSize"`
	InterSize     int     `json:"interSize"`
	PreambleFile  string  `json:"preambleFile"`
}

// NewConfig validates raw and loads its preamble file, producing an
// immutable Config. It fails with ErrConfigInvalid when packetBits is not
// byte-aligned, listing the two nearest legal payload values (spec §3,
// §6, S6), or when payload is out of range.
func NewConfig(raw RawConfig) (Config, error) {
	if raw.Payload < 1 {
		return Config{}, fmt.Errorf("%w: payload must be >= 1, got %d", ErrConfigInvalid, raw.Payload)
	}
	if raw.Payload > maxPayload {
		return Config{}, fmt.Errorf("%w: payload must be <= %d, got %d", ErrConfigInvalid, maxPayload, raw.Payload)
	}
	if raw.CarrierSize < 1 {
		return Config{}, fmt.Errorf("%w: carrierSize must be >= 1, got %d", ErrConfigInvalid, raw.CarrierSize)
	}
	if raw.InterSize < 0 {
		return Config{}, fmt.Errorf("%w: interSize must be >= 0, got %d", ErrConfigInvalid, raw.InterSize)
	}

	packetBits := packetBitsFor(raw.Payload)
	if packetBits%8 != 0 {
		lo, hi := nearestLegalPayloads(raw.Payload)
		return Config{}, fmt.Errorf(
			"%w: payload %d gives packetBits=%d, not a multiple of 8; nearest legal payloads are %d and %d",
			ErrConfigInvalid, raw.Payload, packetBits, lo, hi,
		)
	}

	preamble, err := loadPreamble(raw.PreambleFile)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	busyThreshold := raw.BusyThreshold
	if busyThreshold == 0 {
		busyThreshold = raw.Threshold
	}

	return Config{
		Amplitude:     raw.Amplitude,
		Threshold:     raw.Threshold,
		BusyThreshold: busyThreshold,
		Payload:       raw.Payload,
		CarrierSize:   raw.CarrierSize,
		InterSize:     raw.InterSize,
		Preamble:      preamble,
		packetBits:    packetBits,
	}, nil
}

// packetBitsFor computes (payload+1+headerSize)*10, the chip count of a
// full-size fragment (spec §3 "Derived").
func packetBitsFor(payload int) int {
	return (payload + 1 + headerSize) * 10
}

// nearestLegalPayloads returns the nearest legal payload below payload
// (if any exist at or above 1) and the nearest legal payload above it. If
// no legal value exists below payload (e.g. payload=2 with headerSize=4,
// spec S6), the two nearest legal values above are returned instead.
func nearestLegalPayloads(payload int) (lo, hi int) {
	below := 0
	for cand := payload - 1; cand >= 1; cand-- {
		if packetBitsFor(cand)%8 == 0 {
			below = cand
			break
		}
	}
	above1 := payload + 1
	for packetBitsFor(above1)%8 != 0 {
		above1++
	}
	if below >= 1 {
		return below, above1
	}
	above2 := above1 + 1
	for packetBitsFor(above2)%8 != 0 {
		above2++
	}
	return above1, above2
}

// loadPreamble reads a preamble file: one decimal float per line, no
// header (spec §6 "Preamble file format").
func loadPreamble(path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading preamble file %q: %w", path, err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	samples := make([]float32, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 32)
		if err != nil {
			return nil, fmt.Errorf("preamble file %q line %d: %w", path, i+1, err)
		}
		samples = append(samples, float32(v))
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("preamble file %q contains no samples", path)
	}
	return samples, nil
}
