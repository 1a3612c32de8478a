// Command aethernet runs the acoustic packet modem daemon: it opens a
// sound card, reassembles datagrams from the audio link onto a TUN
// interface, and carries outbound datagrams the other way.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/doismellburning/aethernet/device"
	"github.com/doismellburning/aethernet/nic"
	"github.com/doismellburning/aethernet/phy"
	"github.com/doismellburning/aethernet/ptt"
)

func main() {
	var (
		configFile  = pflag.StringP("config-file", "c", "aethernet.json", "Configuration file name.")
		ifaceName   = pflag.StringP("interface", "i", "aether0", "TUN interface name.")
		ifaceCIDR   = pflag.StringP("address", "a", "10.13.37.1/24", "TUN interface address (CIDR).")
		mtu         = pflag.IntP("mtu", "m", 1200, "TUN interface MTU; should stay at or below the configured payload * fragments-per-datagram budget.")
		inputDev    = pflag.IntP("input-device", "I", -1, "PortAudio input device index. -1 uses the default.")
		outputDev   = pflag.IntP("output-device", "O", -1, "PortAudio output device index. -1 uses the default.")
		sampleRate  = pflag.Float64P("sample-rate", "r", 48000, "Audio sample rate in Hz.")
		framesPer   = pflag.IntP("frames-per-buffer", "f", 1024, "PortAudio frames per callback buffer.")
		record      = pflag.Bool("record", false, "Record raw sent/received samples alongside the run.")
		recordDir   = pflag.String("record-dir", ".", "Directory for --record output files.")
		pttChip     = pflag.String("ptt-chip", "", "GPIO chip for push-to-talk keying (e.g. gpiochip0). Empty disables PTT.")
		pttOffset   = pflag.Int("ptt-offset", 0, "GPIO line offset for push-to-talk keying.")
		pttInvert   = pflag.Bool("ptt-invert", false, "Invert the PTT line's keyed/de-keyed levels.")
		verbose     = pflag.BoolP("verbose", "v", false, "Enable debug logging.")
		help        = pflag.BoolP("help", "h", false, "Display help text.")
	)
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	logger := log.Default()
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	raw, err := os.ReadFile(*configFile)
	if err != nil {
		logger.Fatal("reading config file", "err", err)
	}
	var rawCfg phy.RawConfig
	if err := json.Unmarshal(raw, &rawCfg); err != nil {
		logger.Fatal("parsing config file", "err", err)
	}
	cfg, err := phy.NewConfig(rawCfg)
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	var rec phy.Recorder
	if *record {
		fr, err := phy.NewFileRecorder(*recordDir, "%Y%m%d-%H%M%S", logger)
		if err != nil {
			logger.Fatal("opening recorder", "err", err)
		}
		defer fr.Close()
		rec = fr
	}

	pipeline := phy.NewPipeline(cfg, logger, rec)
	defer pipeline.Close()

	if *pttChip != "" {
		line, err := ptt.Open(*pttChip, *pttOffset, *pttInvert, logger)
		if err != nil {
			logger.Fatal("opening PTT line", "err", err)
		}
		defer line.Close()
		pipeline.OnSendingChange = func(sending bool) {
			if err := line.Key(sending); err != nil {
				logger.Error("keying PTT", "err", err)
			}
		}
	}

	session, err := device.Open(pipeline, device.Options{
		InputDeviceIndex:  *inputDev,
		OutputDeviceIndex: *outputDev,
		SampleRate:        *sampleRate,
		FramesPerBuffer:   *framesPer,
	}, logger)
	if err != nil {
		logger.Fatal("opening audio session", "err", err)
	}
	defer session.Close()

	tun, err := nic.OpenTUN(*ifaceName, *ifaceCIDR, *mtu, logger)
	if err != nil {
		logger.Fatal("opening TUN interface", "err", err)
	}
	defer tun.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go pumpTunToAir(ctx, tun, pipeline, logger, *mtu)
	go pumpAirToTun(ctx, tun, pipeline, logger)

	logger.Info("aethernet running", "interface", *ifaceName, "address", *ifaceCIDR)
	<-ctx.Done()
	logger.Info("shutting down")
}

func pumpTunToAir(ctx context.Context, tun *nic.TUN, p *phy.Pipeline, logger *log.Logger, mtu int) {
	buf := make([]byte, mtu)
	for ctx.Err() == nil {
		n, err := tun.ReadPacket(buf)
		if err != nil {
			logger.Error("reading from tun", "err", err)
			return
		}
		pkt := append([]byte(nil), buf[:n]...)
		if err := p.AsyncSend(ctx, pkt); err != nil {
			logger.Warn("sending packet over acoustic link", "err", err)
		}
	}
}

func pumpAirToTun(ctx context.Context, tun *nic.TUN, p *phy.Pipeline, logger *log.Logger) {
	for ctx.Err() == nil {
		msg, err := p.AsyncRead(ctx)
		if err != nil {
			return
		}
		if err := tun.WritePacket(msg); err != nil {
			logger.Warn("writing packet to tun", "err", err)
		}
	}
}
