// Command aetherline exposes the acoustic modem as a local pseudo-
// terminal byte stream, letting a terminal program drive it without a
// real TUN device or network stack (mirrors the teacher's virtual-KISS-
// TNC pattern).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"github.com/spf13/pflag"

	"github.com/doismellburning/aethernet/phy"
)

func main() {
	configFile := pflag.StringP("config-file", "c", "aethernet.json", "Configuration file name.")
	verbose := pflag.BoolP("verbose", "v", false, "Enable debug logging.")
	help := pflag.BoolP("help", "h", false, "Display help text.")
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

	pipeline := phy.NewPipeline(cfg, logger, nil)
	defer pipeline.Close()

	ptmx, pts, err := pty.Open()
	if err != nil {
		logger.Fatal("opening pseudo terminal", "err", err)
	}
	defer ptmx.Close()
	logger.Info("virtual TNC available", "device", pts.Name())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go linesToPipeline(ctx, ptmx, pipeline, logger)
	go pipelineToLines(ctx, ptmx, pipeline, logger)

	<-ctx.Done()
	logger.Info("shutting down")
}

func linesToPipeline(ctx context.Context, ptmx *os.File, p *phy.Pipeline, logger *log.Logger) {
	scanner := bufio.NewScanner(ptmx)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if err := p.AsyncSend(ctx, line); err != nil {
			logger.Warn("sending line over acoustic link", "err", err)
		}
	}
}

func pipelineToLines(ctx context.Context, ptmx *os.File, p *phy.Pipeline, logger *log.Logger) {
	for ctx.Err() == nil {
		msg, err := p.AsyncRead(ctx)
		if err != nil {
			return
		}
		msg = append(msg, '\n')
		if _, err := ptmx.Write(msg); err != nil {
			logger.Warn("writing to pseudo terminal", "err", err)
		}
	}
}
