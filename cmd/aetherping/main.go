// Command aetherping sends a timestamped payload over the acoustic link
// and reports round-trip latency, supplementing the original project's
// ping.hpp with a minimal link-quality check.
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/doismellburning/aethernet/phy"
)

const pingMagic = "AETHPING"

func main() {
	configFile := pflag.StringP("config-file", "c", "aethernet.json", "Configuration file name.")
	count := pflag.IntP("count", "n", 4, "Number of pings to send.")
	interval := pflag.DurationP("interval", "i", time.Second, "Delay between pings.")
	timeout := pflag.DurationP("timeout", "t", 5*time.Second, "Per-ping reply timeout.")
	listen := pflag.BoolP("listen", "l", false, "Run as the echoing side instead of sending pings.")
	pflag.Parse()

	logger := log.Default()

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

	pipeline := phy.NewPipeline(cfg, logger, nil)
	defer pipeline.Close()

	if *listen {
		runEcho(pipeline, logger)
		return
	}
	runPing(pipeline, logger, *count, *interval, *timeout)
}

func encodePing(seq uint32, sent time.Time) []byte {
	buf := make([]byte, len(pingMagic)+4+8)
	copy(buf, pingMagic)
	binary.LittleEndian.PutUint32(buf[len(pingMagic):], seq)
	binary.LittleEndian.PutUint64(buf[len(pingMagic)+4:], uint64(sent.UnixNano()))
	return buf
}

func decodePing(msg []byte) (seq uint32, sent time.Time, ok bool) {
	if len(msg) != len(pingMagic)+12 || string(msg[:len(pingMagic)]) != pingMagic {
		return 0, time.Time{}, false
	}
	seq = binary.LittleEndian.Uint32(msg[len(pingMagic):])
	nanos := binary.LittleEndian.Uint64(msg[len(pingMagic)+4:])
	return seq, time.Unix(0, int64(nanos)), true
}

func runPing(p *phy.Pipeline, logger *log.Logger, count int, interval, timeout time.Duration) {
	for seq := uint32(0); seq < uint32(count); seq++ {
		sent := time.Now()
		if err := p.AsyncSend(context.Background(), encodePing(seq, sent)); err != nil {
			logger.Error("send failed", "seq", seq, "err", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		msg, err := p.AsyncRead(ctx)
		cancel()
		if err != nil {
			fmt.Printf("seq=%d timeout\n", seq)
			continue
		}
		gotSeq, _, ok := decodePing(msg)
		if !ok || gotSeq != seq {
			fmt.Printf("seq=%d unexpected reply\n", seq)
			continue
		}
		fmt.Printf("seq=%d time=%s\n", seq, time.Since(sent))

		time.Sleep(interval)
	}
}

func runEcho(p *phy.Pipeline, logger *log.Logger) {
	logger.Info("aetherping listening for pings, echoing each back")
	for {
		msg, err := p.AsyncRead(context.Background())
		if err != nil {
			return
		}
		if _, _, ok := decodePing(msg); !ok {
			continue
		}
		if err := p.AsyncSend(context.Background(), msg); err != nil {
			logger.Warn("echo send failed", "err", err)
		}
	}
}
