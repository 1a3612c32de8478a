package phy

import "sync"

// outboundRing is the packet-structured sample FIFO of spec §3: a
// contiguous queue of float32 samples partitioned into packets (each
// packet is one complete inter-gap + preamble + symbols + inter-gap
// transmission unit). It exposes both the total queued length and the
// length of just the front-most packet, which is what lets the output
// callback finish a started packet atomically even when the channel goes
// busy mid-transmission (spec §4.E, §8 property 4).
type outboundRing struct {
	mu         sync.Mutex
	samples    []float32
	packetLens []int // length of each queued packet, front-most first
	maxSamples int    // 0 = unbounded
}

func newOutboundRing(maxSamples int) *outboundRing {
	return &outboundRing{maxSamples: maxSamples}
}

// Enqueue appends one complete packet's samples. It fails with
// ErrRingOverflow, leaving the ring unchanged, if maxSamples is set and
// would be exceeded (spec §7 RingOverflow).
func (r *outboundRing) Enqueue(packet []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxSamples > 0 && len(r.samples)+len(packet) > r.maxSamples {
		return ErrRingOverflow
	}
	r.samples = append(r.samples, packet...)
	r.packetLens = append(r.packetLens, len(packet))
	return nil
}

// Len reports the total number of samples currently queued.
func (r *outboundRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// FrontPacketLen reports the number of samples remaining in the
// front-most (currently or next to be played) packet, or 0 if empty.
func (r *outboundRing) FrontPacketLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.packetLens) == 0 {
		return 0
	}
	return r.packetLens[0]
}

// Read copies up to len(dst) samples from the front of the ring into dst,
// consuming them, and returns how many were copied.
func (r *outboundRing) Read(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := copy(dst, r.samples)
	r.consumeLocked(n)
	return n
}

func (r *outboundRing) consumeLocked(n int) {
	r.samples = r.samples[n:]
	remaining := n
	for remaining > 0 && len(r.packetLens) > 0 {
		if r.packetLens[0] > remaining {
			r.packetLens[0] -= remaining
			remaining = 0
		} else {
			remaining -= r.packetLens[0]
			r.packetLens = r.packetLens[1:]
		}
	}
}

// inboundRing is the plain (non-packet-structured) continuous sample FIFO
// fed by the microphone (spec §3 "Sample ring (inbound)").
type inboundRing struct {
	mu      sync.Mutex
	samples []float32
}

func newInboundRing() *inboundRing {
	return &inboundRing{}
}

// Append adds newly captured samples.
func (r *inboundRing) Append(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, samples...)
}

// DrainAll removes and returns every sample currently queued. The
// returned slice is a fresh copy owned by the caller.
func (r *inboundRing) DrainAll() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.samples) == 0 {
		return nil
	}
	out := make([]float32, len(r.samples))
	copy(out, r.samples)
	r.samples = r.samples[:0]
	return out
}
