// Package watch reports changes to a single configuration file.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Config struct {
	Path     string        // file to watch
	Debounce time.Duration // coalesce editor write bursts; default 500ms
}

// File watches the parent directory of cfg.Path so atomic replaces (write to
// temp, rename over) are seen. The returned channel receives one value per
// debounced burst and is closed when ctx is done.
func File(ctx context.Context, cfg Config, logger *slog.Logger) (<-chan struct{}, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("watch: no path provided")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	target, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watch.create_failed", "error", err)
		return nil, err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		logger.Error("watch.add_failed", "path", filepath.Dir(target), "error", err)
		_ = w.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watch.close_failed", "error", err)
			}
		}()

		timer := time.NewTimer(cfg.Debounce)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				name, _ := filepath.Abs(e.Name)
				if name != target || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				timer.Reset(cfg.Debounce)
			case <-timer.C:
				logger.Info("watch.changed", "path", target)
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "path", target, "error", err)
			}
		}
	}()
	return out, nil
}
