package main

import (
	"context"
	"fmt"
	"os"

	"github.com/leonardotrapani/hyprcaptions/internal/backend"
	"github.com/leonardotrapani/hyprcaptions/internal/capture"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
	"github.com/leonardotrapani/hyprcaptions/internal/render"
	"github.com/leonardotrapani/hyprcaptions/internal/session"
	"github.com/leonardotrapani/hyprcaptions/internal/voice"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// setup loads the config and builds the logger it asks for.
func setup() (*zap.Logger, *config.Manager, error) {
	boot := newLogger(zap.NewAtomicLevelAt(zap.InfoLevel))
	mgr, err := config.NewManager(boot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(mgr.GetConfig().LogLevel())
	return logger, mgr, nil
}

// newLogger returns a development logger with --debug and a production
// console logger otherwise.
func newLogger(level zap.AtomicLevel) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Level = level
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return zap.NewNop()
	}
	return logger
}

// unavailablePlayer stands in when no audio player is installed, so that
// captioning still works and only voice requests fail.
type unavailablePlayer struct {
	err error
}

func (p unavailablePlayer) Play(ctx context.Context, audio []byte) error {
	return p.err
}

// buildSession wires a session against the real devices and backends.
// term may be nil for a headless session.
func buildSession(cfg *config.Config, term *render.Terminal, logger *zap.Logger) (*session.Session, error) {
	backends, err := backend.New(context.Background(), cfg.ToBackendConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create backends: %w", err)
	}

	var player voice.Player
	if p, err := voice.NewExecPlayer(cfg.Voice.Player); err != nil {
		logger.Warn("voice playback unavailable", zap.Error(err))
		player = unavailablePlayer{err: err}
	} else {
		player = p
	}

	deps := session.Dependencies{
		Devices:  capture.NewSystemDevices(logger),
		Backends: backends,
		Player:   player,
	}
	if term != nil {
		deps.Display = term
		deps.Preview = term
	}
	return session.New(cfg.ToSessionConfig(), deps, logger)
}
