// Package device wires a real sound card to a phy.Pipeline using
// PortAudio full-duplex blocking streams, and watches for USB audio
// hardware arriving or departing so a session can be opened and closed
// automatically.
package device

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/doismellburning/aethernet/phy"
)

// Session owns one open PortAudio duplex stream feeding a phy.Pipeline's
// Input/Output callbacks. Exactly one Session should be open per sound
// card at a time; Close tears the stream down cleanly.
type Session struct {
	mu     sync.Mutex
	log    *log.Logger
	stream *portaudio.Stream
	in     []float32
	out    []float32
	p      *phy.Pipeline
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Options selects the input/output devices and buffering for a Session.
type Options struct {
	InputDeviceIndex  int // -1 selects the host's default input device
	OutputDeviceIndex int // -1 selects the host's default output device
	SampleRate        float64
	FramesPerBuffer   int
}

// Open starts a full-duplex PortAudio stream and begins pumping samples
// through p's Input/Output callbacks, mirroring §9's "explicit init/
// teardown at open/close of the first/last session" design note.
func Open(p *phy.Pipeline, opts Options, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("device: portaudio init: %w", err)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: enumerating devices: %w", err)
	}

	inDev, err := resolveDevice(devices, opts.InputDeviceIndex, portaudio.DefaultInputDevice)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: resolving input device: %w", err)
	}
	outDev, err := resolveDevice(devices, opts.OutputDeviceIndex, portaudio.DefaultOutputDevice)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: resolving output device: %w", err)
	}

	s := &Session{
		log:    logger,
		p:      p,
		in:     make([]float32, opts.FramesPerBuffer),
		out:    make([]float32, opts.FramesPerBuffer),
		stopCh: make(chan struct{}),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDev,
			Channels: 1,
			Latency:  inDev.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: 1,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      opts.SampleRate,
		FramesPerBuffer: opts.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, s.in, s.out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: opening stream: %w", err)
	}
	s.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("device: starting stream: %w", err)
	}

	s.log.Info("audio session open", "input", inDev.Name, "output", outDev.Name, "sampleRate", opts.SampleRate)

	s.wg.Add(1)
	go s.pump()
	return s, nil
}

func resolveDevice(devices []*portaudio.DeviceInfo, idx int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if idx >= 0 && idx < len(devices) {
		return devices[idx], nil
	}
	return fallback()
}

// pump is the blocking read/process/write loop: one PortAudio buffer
// round trip per iteration, driving the pipeline's callbacks exactly as
// the real audio hardware clock dictates.
func (s *Session) pump() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			s.log.Error("audio read failed", "err", err)
			return
		}
		s.p.InputCallback(s.in)

		s.p.OutputCallback(s.out)
		if err := s.stream.Write(); err != nil {
			s.log.Error("audio write failed", "err", err)
			return
		}
	}
}

// Close stops the stream and releases the PortAudio session. Safe to
// call once; a second call is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	close(s.stopCh)
	s.wg.Wait()

	err := s.stream.Stop()
	if cerr := s.stream.Close(); err == nil {
		err = cerr
	}
	s.stream = nil
	portaudio.Terminate()
	s.log.Info("audio session closed")
	return err
}
