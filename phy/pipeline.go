package phy

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// receiveMode mirrors the two high-level states of spec §4.E's receiver
// executor: hunting for a preamble in the raw sample stream, versus
// pulling line-coded bits out of a detected packet's data region.
type receiveMode int

const (
	modePreambleDetection receiveMode = iota
	modeDataExtraction
)

// Recorder optionally captures the raw float32 samples a Pipeline sends
// or receives, for offline inspection (spec's SUPPLEMENTED FEATURES:
// raw sample recording). NewPipeline substitutes a no-op Recorder when
// given nil, so wiring one in is strictly opt-in.
type Recorder interface {
	RecordSend(samples []float32)
	RecordReceive(samples []float32)
}

type noopRecorder struct{}

func (noopRecorder) RecordSend([]float32)    {}
func (noopRecorder) RecordReceive([]float32) {}

// Pipeline is the async physical layer of spec §4.E: it owns the
// outbound/inbound sample rings, the two executors, the half-duplex
// output state machine, and the receive-side preamble/demod/framer
// chain, and exposes AsyncSend/AsyncRead as the only entry points the
// rest of the system needs.
type Pipeline struct {
	cfg Config
	log *log.Logger
	rec Recorder

	outbound *outboundRing
	inbound  *inboundRing
	queue    *packetQueue

	senderExec   *executor
	receiverExec *executor

	modulator   *Modulator
	busy        atomic.Bool
	sendingMu   sync.Mutex // guards sending; only outputCallback touches it, but tests call it directly too
	sending     bool

	// OnSendingChange, if set, is invoked with the new value each time
	// sending flips, e.g. to key an external PTT line. Called from
	// OutputCallback's goroutine (the audio thread) — keep it fast.
	OnSendingChange func(sending bool)

	rxMu        sync.Mutex
	rxMode      receiveMode
	correlator  *Correlator
	demodulator *Demodulator
	receiver    *ReceiverState
	symbolBits  *BitSequence // accumulates demodulated bits between codewords

	closed atomic.Bool
}

// NewPipeline builds a Pipeline around cfg. The returned Pipeline is
// ready to have its Output/Input callbacks wired to an audio device.
func NewPipeline(cfg Config, logger *log.Logger, rec Recorder) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if rec == nil {
		rec = noopRecorder{}
	}
	carrier := newCarrier(cfg.CarrierSize)
	p := &Pipeline{
		cfg:          cfg,
		log:          logger,
		rec:          rec,
		outbound:     newOutboundRing(0),
		inbound:      newInboundRing(),
		queue:        newPacketQueue(),
		senderExec:   newExecutor(64),
		receiverExec: newExecutor(1), // single in-flight drain task, like the teacher's single io_context per role
		modulator:    newModulator(carrier, cfg.Amplitude),
		correlator:   newCorrelator(cfg.Preamble, cfg.Threshold),
		demodulator:  newDemodulator(carrier),
		receiver:     NewReceiverState(logger),
		symbolBits:   NewBitSequence(10),
	}
	return p
}

// Close stops both executors. Queued work already posted still drains;
// no new AsyncSend/AsyncRead calls should be made afterward.
func (p *Pipeline) Close() {
	if p.closed.CompareAndSwap(false, true) {
		p.senderExec.Close()
		p.receiverExec.Close()
	}
}

// AsyncSend fragments data, line-codes and modulates every fragment, and
// enqueues the resulting sample packets onto the outbound ring. It runs
// on the sender executor so concurrent AsyncSend calls are serialized in
// call order (spec §5 "messages are not interleaved... in the order the
// calls were made"), and it returns once all samples are enqueued — there
// is no suspension point to honor ctx's cancellation mid-flight, matching
// spec §5's note that Send has nothing meaningful to cancel.
func (p *Pipeline) AsyncSend(ctx context.Context, data []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	fragments := EncodeMessage(data, p.cfg.Payload)
	var sendErr error
	p.senderExec.Submit(func() {
		for _, frag := range fragments {
			samples := p.modulateFragment(frag)
			p.rec.RecordSend(samples)
			if err := p.outbound.Enqueue(samples); err != nil {
				sendErr = err
				return
			}
		}
	})
	return sendErr
}

// modulateFragment turns one already line-coded fragment into a full
// packet waveform: interSize silence, preamble, modulated chips, interSize
// silence (spec §3 "Packet" / §4.C).
func (p *Pipeline) modulateFragment(frag Fragment) []float32 {
	chipCount := frag.Chips.Len()
	n := p.cfg.InterSize + len(p.cfg.Preamble) + chipCount*p.modulator.ChipSize() + p.cfg.InterSize
	out := make([]float32, n)

	off := p.cfg.InterSize
	copy(out[off:], p.cfg.Preamble)
	off += len(p.cfg.Preamble)

	for i := 0; i < chipCount; i++ {
		off += p.modulator.WriteBit(out[off:], frag.Chips.Bit(i))
	}
	return out
}

// AsyncRead waits for the next fully reassembled message, honoring ctx
// cancellation (spec §5).
func (p *Pipeline) AsyncRead(ctx context.Context) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	return p.queue.Pop(ctx)
}

// OutputCallback fills view with the next chunk of outbound audio,
// implementing the half-duplex busy/sending state machine of spec §4.E:
// once a packet has started playing it is always finished even if the
// channel goes busy mid-packet, but a new packet is never started while
// busy. Silence pads any samples beyond what is available to send.
func (p *Pipeline) OutputCallback(view []float32) {
	n := len(view)
	consume := 0
	busy := p.busy.Load()

	p.sendingMu.Lock()
	wasSending := p.sending
	if busy {
		if p.sending {
			front := p.outbound.FrontPacketLen()
			if front < n {
				consume = front
				p.sending = false
			} else {
				consume = n
			}
		}
	} else {
		total := p.outbound.Len()
		if total < n {
			consume = total
			p.sending = false
		} else {
			consume = n
			p.sending = true
		}
	}
	nowSending := p.sending
	p.sendingMu.Unlock()

	if nowSending != wasSending && p.OnSendingChange != nil {
		p.OnSendingChange(nowSending)
	}

	got := p.outbound.Read(view[:consume])
	for i := got; i < n; i++ {
		view[i] = 0
	}
}

// InputCallback is invoked with each chunk of captured microphone audio.
// It updates the busy-sensing flag (recomputed fresh every callback from
// this chunk's energy, not latched — spec §4.E) and hands the samples to
// the receiver executor for demodulation, never blocking the audio
// thread on that work.
func (p *Pipeline) InputCallback(view []float32) {
	var energy float32
	for _, s := range view {
		energy += s * s
	}
	p.busy.Store(energy > p.cfg.BusyThreshold)

	p.rec.RecordReceive(view)
	p.inbound.Append(view)

	// If a drain is already queued it will pick these samples up too, so a
	// full task queue is skipped rather than waited on.
	select {
	case p.receiverExec.tasks <- p.drainInbound:
	default:
	}
}

// drainInbound runs on the receiver executor: it pulls every sample
// currently queued in the inbound ring through the preamble
// correlator/demodulator/framer chain, pushing any completed messages
// onto the packet queue (spec §4.E DataExtraction / PreambleDetection).
func (p *Pipeline) drainInbound() {
	samples := p.inbound.DrainAll()
	if len(samples) == 0 {
		return
	}

	p.rxMu.Lock()
	defer p.rxMu.Unlock()

	for _, s := range samples {
		switch p.rxMode {
		case modePreambleDetection:
			if p.correlator.Feed(s) {
				p.demodulator.Reset()
				p.receiver.Reset()
				p.rxMode = modeDataExtraction
			}
		case modeDataExtraction:
			bit, ready := p.demodulator.Integrate(s)
			if !ready {
				continue
			}
			p.feedBit(bit)
		}
	}
}

// feedBit accumulates one demodulated line-code bit and, once a full
// 10-bit codeword has arrived, decodes it and feeds the resulting byte
// into the framer. On a line-decode failure the receiver drops back to
// preamble hunting (spec §4.D "illegal codeword"). symbolBits lives on
// Pipeline rather than as a drainInbound local so it survives across
// callback invocations within one packet's data region.
func (p *Pipeline) feedBit(bit byte) {
	p.symbolBits.PushBit(bit)
	if p.symbolBits.Len() < 10 {
		return
	}
	word := p.symbolBits.Symbol(0)
	p.symbolBits.Reset()

	b, err := LineDecode(word)
	if err != nil {
		p.log.Warn("line decode failure, resuming preamble search", "err", err)
		p.rxMode = modePreambleDetection
		return
	}

	msg, complete, fragmentComplete := p.receiver.PushByte(b)
	if complete {
		p.queue.Push(msg)
	}
	if fragmentComplete {
		// Every fragment carries its own preamble on the wire (spec
		// §4.E), so the correlator must see the next fragment's
		// preamble samples fresh rather than staying in chip-extraction
		// mode across a multi-fragment message's internal boundaries.
		p.rxMode = modePreambleDetection
	}
}
