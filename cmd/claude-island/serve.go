package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jerryjalapeno/claude-island/internal/config"
	"github.com/jerryjalapeno/claude-island/internal/daemon"
	"github.com/jerryjalapeno/claude-island/internal/focus"
	"github.com/jerryjalapeno/claude-island/internal/logging"
	"github.com/jerryjalapeno/claude-island/internal/monitor"
	"github.com/jerryjalapeno/claude-island/internal/transcript"
	"github.com/jerryjalapeno/claude-island/internal/watch"
)

type ServeCmd struct {
	Address  string `help:"Listen address override." placeholder:"HOST:PORT"`
	LogLevel string `help:"Log level override (debug, info, warn, error)." name:"log-level"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	levelName := cfg.LogLevel()
	if c.LogLevel != "" {
		levelName = c.LogLevel
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(levelName))

	if _, err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("prepare data dir: %w", err)
	}
	tokenPath, err := config.TokenPath()
	if err != nil {
		return err
	}
	token, err := daemon.LoadOrCreateToken(tokenPath)
	if err != nil {
		return fmt.Errorf("prepare auth token: %w", err)
	}

	statePath, err := cfg.StateDB()
	if err != nil {
		return err
	}
	offsets, err := transcript.OpenOffsetStore(statePath)
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	defer offsets.Close()

	parser := transcript.NewParser(logger.With(logging.F("component", "transcript")), offsets)
	coordinator := monitor.New(monitor.Options{
		Logger:         logger.With(logging.F("component", "monitor")),
		Ingestor:       parser,
		DebounceWindow: cfg.DebounceWindow(),
		GraceWindow:    cfg.GraceWindow(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		_ = coordinator.Run(ctx)
	}()

	transcriptRoot, err := cfg.TranscriptRoot()
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(transcriptRoot); statErr == nil {
		watcher := watch.New(transcriptRoot, coordinator, logger.With(logging.F("component", "watch")))
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("watcher_stopped", logging.F("error", err))
			}
		}()
	} else {
		logger.Warn("transcript_root_missing", logging.F("root", transcriptRoot))
	}

	focuser := focus.NewTmuxFocuser(logger.With(logging.F("component", "focus")))

	addr := cfg.DaemonAddress()
	if c.Address != "" {
		addr = c.Address
	}
	d := daemon.New(addr, token, version, coordinator, focuser, logger.With(logging.F("component", "daemon")))
	return d.Run(ctx)
}
