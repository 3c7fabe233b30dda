package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultMaxSizeMB = 10
	defaultKeep      = 5
)

// Rotation bounds a log file. Zero fields take the defaults of 10 MB and
// five backups. Values come from server.log_max_size_mb and
// server.log_max_files in the solrscout config.
type Rotation struct {
	MaxSizeMB int
	Keep      int
}

func (r Rotation) withDefaults() Rotation {
	if r.MaxSizeMB <= 0 {
		r.MaxSizeMB = defaultMaxSizeMB
	}
	if r.Keep <= 0 {
		r.Keep = defaultKeep
	}
	return r
}

// RotatingWriter appends to a log file and moves it aside once it would
// grow past the size limit. Backups are numbered path.1 (newest) through
// path.<Keep>.
type RotatingWriter struct {
	path  string
	limit int64
	keep  int

	mu   sync.Mutex
	f    *os.File
	size int64
	sync bool
}

// NewRotatingWriter opens path for appending, creating its directory.
// Writes are synced by default so `solrscout logs -f` follows them live.
func NewRotatingWriter(path string, r Rotation) (*RotatingWriter, error) {
	r = r.withDefaults()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	w := &RotatingWriter{
		path:  path,
		limit: int64(r.MaxSizeMB) << 20,
		keep:  r.Keep,
		sync:  true,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// SetImmediateSync toggles the fsync after every write.
func (w *RotatingWriter) SetImmediateSync(enabled bool) {
	w.mu.Lock()
	w.sync = enabled
	w.mu.Unlock()
}

// Write appends p, rotating first when p would push the file past the
// limit. A failed rotation keeps writing to the current file.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size > 0 && w.size+int64(len(p)) > w.limit {
		if err := w.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "solrscout: log rotation failed: %v\n", err)
		}
		if w.f == nil {
			if err := w.open(); err != nil {
				return 0, err
			}
		}
	}

	n, err := w.f.Write(p)
	w.size += int64(n)
	if err == nil && w.sync {
		_ = w.f.Sync()
	}
	return n, err
}

// Sync flushes the current file.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	return w.f.Sync()
}

// Close closes the current file. A later Write reopens it.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.f, w.size = f, info.Size()
	return nil
}

func (w *RotatingWriter) backup(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}

// rotate closes the live file, shifts path.N to path.N+1 from the oldest
// down, moves the live file to path.1 and reopens. Backups numbered past
// keep, including ones left by a larger earlier setting, are removed.
func (w *RotatingWriter) rotate() error {
	err := w.f.Close()
	w.f = nil
	if err != nil {
		return fmt.Errorf("close log file: %w", err)
	}

	for n := w.keep; ; n++ {
		if err := os.Remove(w.backup(n)); err != nil && n > w.keep {
			break
		}
	}
	for n := w.keep - 1; n >= 1; n-- {
		if err := os.Rename(w.backup(n), w.backup(n+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("shift log backup %d: %w", n, err)
		}
	}
	if err := os.Rename(w.path, w.backup(1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return w.open()
}
