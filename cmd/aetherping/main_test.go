package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingEncodeDecodeRoundTrip(t *testing.T) {
	sent := time.Unix(1700000000, 123000000)
	msg := encodePing(42, sent)

	seq, got, ok := decodePing(msg)
	require.True(t, ok)
	assert.Equal(t, uint32(42), seq)
	assert.True(t, sent.Equal(got))
}

func TestPingDecodeRejectsGarbage(t *testing.T) {
	_, _, ok := decodePing([]byte("not a ping"))
	assert.False(t, ok)
}

func TestPingDecodeRejectsWrongLength(t *testing.T) {
	msg := encodePing(1, time.Now())
	_, _, ok := decodePing(msg[:len(msg)-1])
	assert.False(t, ok)
}
