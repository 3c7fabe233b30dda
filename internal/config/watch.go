package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce coalesces bursts of writes from editors.
const WatchDebounce = 100 * time.Millisecond

// Watch reloads the config file at path whenever it changes and calls
// onChange with the result. The parent directory is watched so atomic
// renames by editors are seen. Blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(WatchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			cfg, err := LoadFile(abs)
			if err != nil {
				slog.Warn("config_reload_failed", slog.String("path", abs), slog.String("error", err.Error()))
			} else {
				slog.Info("config_reloaded", slog.String("path", abs))
			}
			onChange(cfg, err)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config_watch_error", slog.String("error", err.Error()))
		}
	}
}
