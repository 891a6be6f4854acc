package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors produce when saving.
const reloadDelay = 500 * time.Millisecond

// settings holds the live configuration. Readers always get a copy.
type settings struct {
	path string

	mu   sync.RWMutex
	conf Config
	// onChange is called after a reload with the previous and new values.
	onChange func(prev, next Config)
}

func newSettings(path string, conf Config, onChange func(prev, next Config)) *settings {
	return &settings{path: path, conf: conf, onChange: onChange}
}

func (s *settings) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conf
}

// Reload reads the file again. On error, including a missing file, the
// current configuration is kept.
func (s *settings) Reload() error {
	if _, err := os.Stat(s.path); err != nil {
		return err
	}
	next, err := LoadConfig(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.conf
	s.conf = *next
	s.mu.Unlock()

	logLevel.Set(next.Log.Level)
	slog.Info("reloaded config", "config", *next)
	if s.onChange != nil {
		s.onChange(prev, *next)
	}
	return nil
}

// Watch reloads the configuration whenever the file changes, until ctx is
// done. The directory is watched so editors that replace the file are seen.
func (s *settings) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	dir, name := filepath.Split(filepath.Clean(s.path))
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		return err
	}
	slog.Debug("watching config", "path", s.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				if err := s.Reload(); err != nil {
					slog.Error("failed to reload config, keeping the previous one", "error", err)
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
