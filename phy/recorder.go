package phy

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// FileRecorder is a Recorder that dumps raw outbound and inbound samples
// to two timestamped files per session, named from a strftime pattern
// (spec's SUPPLEMENTED FEATURES: "optional raw sample recording"). It is
// wired in only when the host enables --record; the default Pipeline
// uses the no-op Recorder.
type FileRecorder struct {
	mu       sync.Mutex
	log      *log.Logger
	sendFile *os.File
	recvFile *os.File
}

// NewFileRecorder creates (or truncates) sent-<ts>.raw and recv-<ts>.raw
// in dir, where <ts> is time.Now() formatted with pattern (e.g.
// "%Y%m%d-%H%M%S"). Samples are appended as little-endian float32s.
func NewFileRecorder(dir, pattern string, logger *log.Logger) (*FileRecorder, error) {
	if logger == nil {
		logger = log.Default()
	}
	stamp, err := strftime.Format(pattern, time.Now())
	if err != nil {
		return nil, fmt.Errorf("phy: formatting recorder timestamp: %w", err)
	}

	sendPath := filepath.Join(dir, fmt.Sprintf("sent-%s.raw", stamp))
	recvPath := filepath.Join(dir, fmt.Sprintf("recv-%s.raw", stamp))

	sendFile, err := os.Create(sendPath)
	if err != nil {
		return nil, fmt.Errorf("phy: creating %s: %w", sendPath, err)
	}
	recvFile, err := os.Create(recvPath)
	if err != nil {
		sendFile.Close()
		return nil, fmt.Errorf("phy: creating %s: %w", recvPath, err)
	}

	logger.Info("recording raw samples", "sent", sendPath, "recv", recvPath)
	return &FileRecorder{log: logger, sendFile: sendFile, recvFile: recvFile}, nil
}

// RecordSend appends samples to the sent-samples file.
func (r *FileRecorder) RecordSend(samples []float32) {
	r.write(r.sendFile, samples)
}

// RecordReceive appends samples to the received-samples file.
func (r *FileRecorder) RecordReceive(samples []float32) {
	r.write(r.recvFile, samples)
}

func (r *FileRecorder) write(f *os.File, samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	if _, err := f.Write(buf); err != nil {
		r.log.Error("failed writing recorder file", "file", f.Name(), "err", err)
	}
}

// Close closes both recording files.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err1 := r.sendFile.Close()
	err2 := r.recvFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
