package phy

// Carrier is the chip shape used to modulate each bit: carrierSize samples
// of amplitude-1 pulses (spec §3 "Carrier", §4.C). BPSK is expressed as a
// polarity reversal of this pulse rather than a literal phase shift, so a
// unit DC pulse suffices; a sinusoidal table is equally valid since
// demodulation just correlates against whatever table modulation used.
func newCarrier(carrierSize int) []float32 {
	c := make([]float32, carrierSize)
	for i := range c {
		c[i] = 1
	}
	return c
}

// Modulator turns line-coded chips into samples. One bit maps to
// carrierSize samples: bit 0 -> +amplitude*carrier[k], bit 1 ->
// -amplitude*carrier[k] (spec §4.C).
type Modulator struct {
	carrier   []float32
	amplitude float32
}

func newModulator(carrier []float32, amplitude float32) *Modulator {
	return &Modulator{carrier: carrier, amplitude: amplitude}
}

// WriteBit appends the carrierSize-sample chip for bit into dst, returning
// the number of samples written.
func (m *Modulator) WriteBit(dst []float32, bit byte) int {
	sign := m.amplitude
	if bit != 0 {
		sign = -m.amplitude
	}
	for i, c := range m.carrier {
		dst[i] = c * sign
	}
	return len(m.carrier)
}

// ChipSize reports how many samples one modulated bit occupies.
func (m *Modulator) ChipSize() int {
	return len(m.carrier)
}

// Demodulator performs chip integration to recover one bit per
// carrierSize samples, purely off a sample count with no PLL (spec §4.C).
// It is reset at the start of each packet's data region.
type Demodulator struct {
	carrier []float32
	dt      int
	sum     float32
}

func newDemodulator(carrier []float32) *Demodulator {
	return &Demodulator{carrier: carrier}
}

// Reset clears the phase counter and accumulator, used when the data
// region of a new packet begins.
func (d *Demodulator) Reset() {
	d.dt = 0
	d.sum = 0
}

// Integrate folds one sample into the running chip accumulator. It
// returns (bit, true) once every carrierSize-th sample completes a chip,
// or (0, false) otherwise.
func (d *Demodulator) Integrate(sample float32) (bit byte, ready bool) {
	d.sum += sample * d.carrier[d.dt]
	d.dt++
	if d.dt != len(d.carrier) {
		return 0, false
	}
	bit = byte(0)
	if d.sum < 0 {
		bit = 1
	}
	d.sum = 0
	d.dt = 0
	return bit, true
}

// Correlator is a matched filter for preamble detection: on every new
// sample it computes the correlation of the trailing window against the
// fixed preamble pattern, declaring detection once the correlation
// exceeds threshold and at least len(preamble) samples have elapsed since
// the previous declaration (spec §4.C). The window is a fixed-size ring
// buffer so Feed runs in O(L) time with no reallocation.
type Correlator struct {
	preamble       []float32
	threshold      float32
	window         []float32 // ring buffer, capacity len(preamble)
	filled         int       // number of valid samples currently in window
	next           int       // next slot to overwrite
	sinceDetection int
}

func newCorrelator(preamble []float32, threshold float32) *Correlator {
	return &Correlator{
		preamble:       preamble,
		threshold:      threshold,
		window:         make([]float32, len(preamble)),
		sinceDetection: len(preamble) + 1,
	}
}

// Feed appends one new sample to the correlator and reports whether a
// preamble was just detected. On detection the sliding window is cleared
// (spec §4.C, §4.E "clear sliding window").
func (c *Correlator) Feed(sample float32) bool {
	c.sinceDetection++

	c.window[c.next] = sample
	c.next = (c.next + 1) % len(c.window)
	if c.filled < len(c.window) {
		c.filled++
		if c.filled < len(c.window) {
			return false
		}
	}

	var sum float32
	for i, p := range c.preamble {
		sum += c.window[(c.next+i)%len(c.window)] * p
	}

	if sum > c.threshold && c.sinceDetection > len(c.preamble) {
		c.sinceDetection = 0
		c.filled = 0
		c.next = 0
		return true
	}
	return false
}

// Len reports the preamble length L.
func (c *Correlator) Len() int {
	return len(c.preamble)
}
