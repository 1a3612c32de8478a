package phy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePreambleFile(t *testing.T, samples []float32) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "preamble.txt")
	var content string
	for _, s := range samples {
		content += formatSample(s) + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func formatSample(f float32) string {
	if f == 1 {
		return "1.0"
	}
	if f == -1 {
		return "-1.0"
	}
	return "0.0"
}

func TestNewConfigValid(t *testing.T) {
	preamble := writePreambleFile(t, []float32{1, -1, 1, -1})
	cfg, err := NewConfig(RawConfig{
		Amplitude:    0.8,
		Threshold:    2.0,
		Payload:      3, // S6: packetBits = (3+1+4)*10 = 80, multiple of 8
		CarrierSize:  4,
		InterSize:    16,
		PreambleFile: preamble,
	})
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.PacketBits())
	assert.Equal(t, float32(2.0), cfg.BusyThreshold, "busyThreshold should default to threshold when unset")
	assert.Len(t, cfg.Preamble, 4)
}

func TestNewConfigRejectsMisalignedPayload(t *testing.T) {
	// S6: payload=2 gives packetBits=(2+1+4)*10=70, not a multiple of 8;
	// nearest legal payloads are 3 and 7.
	preamble := writePreambleFile(t, []float32{1, -1})
	_, err := NewConfig(RawConfig{
		Amplitude:    0.8,
		Threshold:    1.0,
		Payload:      2,
		CarrierSize:  4,
		InterSize:    0,
		PreambleFile: preamble,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "7")
}

func TestNewConfigRejectsZeroPayload(t *testing.T) {
	_, err := NewConfig(RawConfig{Payload: 0, CarrierSize: 1})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestNewConfigRejectsZeroCarrierSize(t *testing.T) {
	_, err := NewConfig(RawConfig{Payload: 3, CarrierSize: 0})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestNewConfigExplicitBusyThresholdOverridesDefault(t *testing.T) {
	preamble := writePreambleFile(t, []float32{1, -1})
	cfg, err := NewConfig(RawConfig{
		Amplitude:     0.8,
		Threshold:     1.0,
		BusyThreshold: 5.0,
		Payload:       3,
		CarrierSize:   4,
		PreambleFile:  preamble,
	})
	require.NoError(t, err)
	assert.Equal(t, float32(5.0), cfg.BusyThreshold)
}

func TestNearestLegalPayloadsSmallValue(t *testing.T) {
	lo, hi := nearestLegalPayloads(2)
	assert.Equal(t, 3, lo)
	assert.Equal(t, 7, hi)
}

func TestLoadPreambleRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n\n"), 0o644))
	_, err := loadPreamble(path)
	assert.Error(t, err)
}

func TestLoadPreambleParsesFloats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preamble.txt")
	require.NoError(t, os.WriteFile(path, []byte("1.0\n-1.0\n0.5\n"), 0o644))
	samples, err := loadPreamble(path)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.0, -1.0, 0.5}, samples)
}
