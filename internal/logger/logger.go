package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log lines go.
type Options struct {
	Name  string
	Level string
	File  string // rotating log file; empty logs to stderr only
}

// New builds the root logger. Components derive their own with Named().
func New(opts Options) (hclog.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err == nil {
			rotating := &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    5, // megabytes
				MaxBackups: 3,
				MaxAge:     30,
			}
			out = io.MultiWriter(os.Stderr, rotating)
			closer = rotating
		}
	}

	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      level,
		Output:     out,
		TimeFormat: "15:04:05",
	}), closer
}

// Discard is used by tests and by components constructed without a logger.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
