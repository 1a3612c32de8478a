// Package ptt drives a GPIO "push to talk" line in step with a
// phy.Pipeline's transmit state, the acoustic-modem equivalent of
// direwolf's radio keying: an external amplifier or relay can be keyed
// while a packet is actually on the wire.
package ptt

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"
)

// gpioLine is the subset of *gpiocdev.Line this package depends on, split
// out so tests can substitute a mock without requiring GPIO hardware or
// the gpio-sim kernel module.
type gpioLine interface {
	SetValue(value int) error
	Close() error
}

// Line is one GPIO output line used for keying.
type Line struct {
	log    *log.Logger
	line   gpioLine
	invert bool
}

// Open requests offset on chip (e.g. "gpiochip0") as an output line,
// initially de-asserted. When invert is true, a logical "keyed" state
// drives the line low instead of high (mirrors direwolf's ptt_invert).
func Open(chip string, offset int, invert bool, logger *log.Logger) (*Line, error) {
	if logger == nil {
		logger = log.Default()
	}
	initial := 0
	if invert {
		initial = 1
	}
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("ptt: requesting line %s:%d: %w", chip, offset, err)
	}
	return newLine(l, invert, logger), nil
}

func newLine(l gpioLine, invert bool, logger *log.Logger) *Line {
	if logger == nil {
		logger = log.Default()
	}
	return &Line{log: logger, line: l, invert: invert}
}

// Key asserts (keyed=true) or de-asserts (keyed=false) the PTT line.
// Callers typically invoke this from the same place the pipeline's
// OutputCallback observes its "sending" transition, so the line tracks
// actual transmission rather than merely queued-to-send state.
func (l *Line) Key(keyed bool) error {
	value := 0
	if keyed {
		value = 1
	}
	if l.invert {
		value = 1 - value
	}
	if err := l.line.SetValue(value); err != nil {
		return fmt.Errorf("ptt: setting line value: %w", err)
	}
	l.log.Debug("ptt", "keyed", keyed)
	return nil
}

// Close releases the GPIO line, leaving it de-asserted.
func (l *Line) Close() error {
	_ = l.Key(false)
	return l.line.Close()
}
