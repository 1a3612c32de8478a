package phy

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Fragment is one on-wire unit ready for the waveform codec: the already
// 8B/10B-encoded chips for header ‖ body ‖ CRC (spec §4.D).
type Fragment struct {
	Chips *BitSequence
	Size  int  // body byte count carried by this fragment
	Done  bool // true if this is the final fragment of the message
}

// EncodeMessage splits data into payload-sized fragments and line-codes
// each one's header+body+CRC into its own chip sequence (spec §4.D send
// side). An empty message produces zero fragments (spec §8 property 6).
func EncodeMessage(data []byte, payload int) []Fragment {
	if len(data) == 0 {
		return nil
	}

	var fragments []Fragment
	for off := 0; off < len(data); off += payload {
		n := payload
		if off+n > len(data) {
			n = len(data) - off
		}
		body := data[off : off+n]

		header := PhysicalHeader{Size: uint32(n), Done: off+n == len(data)}

		var crc CRC8
		crc.Reset()
		for _, b := range body {
			crc.Update(b)
		}

		chips := NewBitSequence((headerSize + n + 1) * 10)
		var headerBytes [headerSize]byte
		header.Encode(headerBytes[:])
		for _, b := range headerBytes {
			chips.PushSymbol(LineEncode(b))
		}
		for _, b := range body {
			chips.PushSymbol(LineEncode(b))
		}
		chips.PushSymbol(LineEncode(crc.Get()))

		fragments = append(fragments, Fragment{Chips: chips, Size: n, Done: header.Done})
	}
	return fragments
}

// receiveSubstate is the inner state of DataExtraction once a preamble has
// been found (spec §4.D's ReadingHeader/ReadingBody/ReadingCRC table).
type receiveSubstate int

const (
	readingHeader receiveSubstate = iota
	readingBody
	readingCRC
)

// ReceiverState is the per-session state machine that turns decoded
// bytes into reassembled messages. It is owned by the receiver executor
// (spec §9: "must be encapsulated... never process-global") so multiple
// modem instances and isolated tests are possible.
type ReceiverState struct {
	log *log.Logger

	substate   receiveSubstate
	headerBuf  [headerSize]byte
	headerLen  int
	header     PhysicalHeader
	crc        CRC8
	bodyLen    int
	bodyBuf    []byte // reused across fragments, len == header.Size when full
	message    *ByteSequence
}

// NewReceiverState returns a fresh, idle receiver state.
func NewReceiverState(logger *log.Logger) *ReceiverState {
	if logger == nil {
		logger = log.Default()
	}
	return &ReceiverState{
		log:     logger,
		message: NewByteSequence(0),
	}
}

// Reset returns the state machine to ReadingHeader, discarding any partial
// header/body/CRC progress (but not the accumulated message buffer — that
// is only cleared on a completed Done fragment, per §4.D's invariant and
// DESIGN.md's Open Question 1 resolution).
func (r *ReceiverState) Reset() {
	r.substate = readingHeader
	r.headerLen = 0
	r.bodyLen = 0
}

// PushByte feeds one line-decoded byte through the framer state machine.
// fragmentComplete is true whenever a fragment's trailing CRC byte has
// just been processed, success or failure — every such fragment carries
// its own preamble on the wire, so the caller must return to preamble
// hunting at that point regardless of outcome (spec §4.E). complete is
// true only when that fragment also passed CRC and had header.Done set,
// in which case message is the complete reassembled application payload
// (valid until the next call). A CRC failure never completes a message,
// even on a done=1 fragment (spec §4.D's ReadingCRC row nests the
// enqueue under `CRC.q == 0`).
func (r *ReceiverState) PushByte(b byte) (message []byte, complete bool, fragmentComplete bool) {
	switch r.substate {
	case readingHeader:
		r.headerBuf[r.headerLen] = b
		r.headerLen++
		if r.headerLen < headerSize {
			return nil, false, false
		}
		r.header = DecodePhysicalHeader(r.headerBuf[:])
		if r.header.Size == 0 {
			r.log.Warn("physical header invalid, size is zero")
			r.Reset()
			return nil, false, false
		}
		r.crc.Reset()
		r.bodyLen = 0
		if cap(r.bodyBuf) < int(r.header.Size) {
			r.bodyBuf = make([]byte, r.header.Size)
		}
		r.bodyBuf = r.bodyBuf[:r.header.Size]
		r.substate = readingBody
		return nil, false, false

	case readingBody:
		r.bodyBuf[r.bodyLen] = b
		r.bodyLen++
		r.crc.Update(b)
		if r.bodyLen == int(r.header.Size) {
			r.substate = readingCRC
		}
		return nil, false, false

	case readingCRC:
		r.crc.Update(b)
		ok := r.crc.Q == 0
		done := r.header.Done
		r.Reset()
		if !ok {
			r.log.Warn("CRC failure, dropping fragment", "size", r.header.Size, "done", done)
			if done {
				// Open Question 1 resolution (b): a done=1 fragment is
				// always a resynchronization point, so the partial
				// buffer is discarded here even though nothing is
				// delivered — this is what bounds memory to one
				// in-flight message without ever handing the
				// application a corrupted payload.
				r.message.Reset()
			}
			return nil, false, true
		}
		r.message.AppendSpan(r.bodyBuf[:r.bodyLen])
		if done {
			out := append([]byte(nil), r.message.Bytes()...)
			r.message.Reset()
			return out, true, true
		}
		return nil, false, true
	}
	panic(fmt.Sprintf("phy: unreachable receive substate %d", r.substate))
}
