package device

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/jochenvg/go-udev"
)

// HotplugEvent describes a sound card appearing or disappearing.
type HotplugEvent struct {
	Action  string // "add" or "remove"
	SysPath string
}

// WatchSoundCards streams hotplug events for the "sound" subsystem until
// ctx is cancelled, letting the host open a Session when a card appears
// and Close it when the same card disappears (spec §9's session-owned
// handle design note).
func WatchSoundCards(ctx context.Context, logger *log.Logger) (<-chan HotplugEvent, error) {
	if logger == nil {
		logger = log.Default()
	}

	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("sound"); err != nil {
		return nil, err
	}

	devices, err := mon.DeviceChan(ctx)
	if err != nil {
		return nil, err
	}

	events := make(chan HotplugEvent)
	go func() {
		defer close(events)
		for d := range devices {
			ev := HotplugEvent{Action: d.Action(), SysPath: d.Syspath()}
			logger.Debug("sound card hotplug", "action", ev.Action, "path", ev.SysPath)
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
