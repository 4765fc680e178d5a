// Package download waits for a browser download to land in a directory.
//
// Chromium writes to a ".crdownload" partial and renames it to the final name
// when the transfer ends. A download counts as finished once the final file
// exists, was modified at or after the moment the export was triggered, and
// its size has not changed for one settle interval.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrTimeout is returned when the file does not complete before the deadline.
var ErrTimeout = errors.New("download did not complete in time")

const defaultSettle = 500 * time.Millisecond

// Watcher waits for named files in one directory.
type Watcher struct {
	dir    string
	settle time.Duration
	log    *zap.Logger
}

// NewWatcher returns a watcher for dir.
func NewWatcher(dir string, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{dir: dir, settle: defaultSettle, log: log}
}

// WithSettle overrides how long the size must stay unchanged.
func (w *Watcher) WithSettle(d time.Duration) *Watcher {
	w.settle = d
	return w
}

// Wait blocks until filename is complete, ctx ends, or timeout elapses.
// Files last modified before since are treated as leftovers from an earlier
// run and ignored. It returns the full path of the finished file.
func (w *Watcher) Wait(ctx context.Context, filename string, since time.Time, timeout time.Duration) (string, error) {
	target := filepath.Join(w.dir, filename)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Register before the first stat so a rename between the two is not lost.
	if err := watcher.Add(w.dir); err != nil {
		return "", fmt.Errorf("watch %s: %w", w.dir, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(w.settle)
	defer ticker.Stop()

	lastSize := int64(-1)
	check := func() bool {
		info, err := os.Stat(target)
		if err != nil || info.IsDir() || info.ModTime().Before(since) {
			lastSize = -1
			return false
		}
		if _, err := os.Stat(target + ".crdownload"); err == nil {
			lastSize = -1
			return false
		}
		size := info.Size()
		stable := size == lastSize
		lastSize = size
		return stable
	}

	check()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %s after %s", ErrTimeout, target, timeout)
			}
			return "", ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return "", errors.New("watcher closed")
			}
			if filepath.Base(ev.Name) != filename {
				continue
			}
			w.log.Debug("download event", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			// A fresh write restarts the settle window.
			lastSize = -1
			check()

		case err, ok := <-watcher.Errors:
			if !ok {
				return "", errors.New("watcher closed")
			}
			w.log.Warn("download watcher error", zap.Error(err))

		case <-ticker.C:
			if check() {
				return target, nil
			}
		}
	}
}
