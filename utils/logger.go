// Package utils provides utility functions for the application.
package utils

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingLoggerConfig controls file rotation for component loggers
type RotatingLoggerConfig struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingLogger returns a logger that writes to both stdout and a rotating
// file under cfg.Dir, named after the component. log.Logger is goroutine-safe;
// timestamps include microseconds and UTC.
func NewRotatingLogger(cfg RotatingLoggerConfig, component string) *log.Logger {
	if cfg.Dir == "" {
		return log.New(os.Stdout, component+" ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, component+".log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	mw := io.MultiWriter(os.Stdout, rotator)
	return log.New(mw, component+" ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
