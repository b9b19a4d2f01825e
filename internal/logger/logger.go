// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format     string `yaml:"format" default:"console" validate:"oneof=console json"`
	File       string `yaml:"file"` // empty disables file output
	MaxSizeMB  int    `yaml:"max_size_mb" default:"50" validate:"gte=1"`
	MaxAgeDays int    `yaml:"max_age_days" default:"14" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" default:"5" validate:"gte=0"`
}

// Init initializes the global logger writing to stderr and, when File is
// set, a rotated JSON log file
func Init(cfg Config) error {
	l, err := New(cfg, os.Stderr)
	if err != nil {
		return err
	}
	log.Logger = l

	log.Debug().
		Str("level", cfg.Level).
		Str("format", cfg.Format).
		Str("file", cfg.File).
		Msg("Logger initialized")
	return nil
}

// New builds a logger writing to console and the optional file
func New(cfg Config, console io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writers := []io.Writer{console}
	if cfg.Format == "console" {
		writers[0] = zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Logger{}, fmt.Errorf("creating log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger(), nil
}
