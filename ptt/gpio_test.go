package ptt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGPIOLine is a test double for gpioLine that records calls without
// requiring GPIO hardware or the gpio-sim kernel module.
type mockGPIOLine struct {
	value   int
	closed  bool
	failSet bool
}

func (m *mockGPIOLine) SetValue(v int) error {
	if m.failSet {
		return errors.New("simulated gpio failure")
	}
	m.value = v
	return nil
}

func (m *mockGPIOLine) Close() error {
	m.closed = true
	return nil
}

func TestLineKeyActivatesLine(t *testing.T) {
	mock := &mockGPIOLine{}
	line := newLine(mock, false, nil)

	require.NoError(t, line.Key(true))

	assert.Equal(t, 1, mock.value, "line should be high when PTT is keyed")
}

func TestLineKeyDeactivatesLine(t *testing.T) {
	mock := &mockGPIOLine{value: 1}
	line := newLine(mock, false, nil)

	require.NoError(t, line.Key(false))

	assert.Equal(t, 0, mock.value, "line should be low when PTT is not keyed")
}

func TestLineKeyInvertedActivate(t *testing.T) {
	mock := &mockGPIOLine{}
	line := newLine(mock, true, nil)

	require.NoError(t, line.Key(true))

	assert.Equal(t, 0, mock.value, "inverted line should be low when PTT is keyed")
}

func TestLineKeyInvertedDeactivate(t *testing.T) {
	mock := &mockGPIOLine{}
	line := newLine(mock, true, nil)

	require.NoError(t, line.Key(false))

	assert.Equal(t, 1, mock.value, "inverted line should be high when PTT is not keyed")
}

func TestLineKeyPropagatesSetValueError(t *testing.T) {
	mock := &mockGPIOLine{failSet: true}
	line := newLine(mock, false, nil)

	err := line.Key(true)

	assert.Error(t, err)
}

func TestLineCloseDeassertsAndClosesLine(t *testing.T) {
	mock := &mockGPIOLine{value: 1}
	line := newLine(mock, false, nil)

	require.NoError(t, line.Close())

	assert.Equal(t, 0, mock.value, "close should de-assert before closing")
	assert.True(t, mock.closed)
}
