package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logLevel is shared by every handler so a reload can change it.
var logLevel = new(slog.LevelVar)

// SetupLogging installs the default JSON logger writing to stderr and, if
// configured, to a rotated log file. The returned closer flushes the file.
func SetupLogging(conf LogConfig) io.Closer {
	logLevel.Set(conf.Level)
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if conf.File != "" {
		if err := os.MkdirAll(filepath.Dir(conf.File), 0o755); err != nil {
			slog.Error("failed to create log directory", "error", err)
		} else {
			lj := &lumberjack.Logger{
				Filename:   conf.File,
				MaxSize:    10, // MB
				MaxBackups: 2,
				MaxAge:     28, // days
				Compress:   true,
			}
			w = io.MultiWriter(os.Stderr, lj)
			closer = lj
		}
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closer
}
