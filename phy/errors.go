package phy

import "errors"

// Sentinel errors for the disposition table in spec §7.
var (
	// ErrConfigInvalid is returned by NewConfig when the configured payload
	// size does not produce a byte-aligned on-wire packet.
	ErrConfigInvalid = errors.New("phy: invalid configuration")

	// ErrLineDecode marks a 10-bit symbol outside the legal 8B/10B codeword
	// set. It never escapes the receiver: it is logged and the receiver
	// state machine resets to preamble search.
	ErrLineDecode = errors.New("phy: line decode failure")

	// ErrHeaderInvalid marks a physical header with size == 0.
	ErrHeaderInvalid = errors.New("phy: invalid header")

	// ErrCRCFailure marks a fragment whose trailing CRC byte did not
	// divide evenly.
	ErrCRCFailure = errors.New("phy: CRC failure")

	// ErrRingOverflow is returned by AsyncSend when the outbound sample
	// ring's configured capacity would be exceeded.
	ErrRingOverflow = errors.New("phy: outbound ring overflow")

	// ErrClosed is returned by AsyncSend/AsyncRead once the pipeline has
	// been closed.
	ErrClosed = errors.New("phy: pipeline closed")
)
