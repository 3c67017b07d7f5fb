package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig configures inbox watching for the daemon.
type WatchConfig struct {
	Roots       []string
	InitialScan bool          // emit files already present at startup
	Debounce    time.Duration // coalesce rapid create/write bursts
}

// StartWatcher emits paths of newly arrived invoice files under the roots.
// Both channels close when ctx is cancelled. Writers typically produce a
// create followed by several writes, so events are debounced per path.
func StartWatcher(ctx context.Context, logger *slog.Logger, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	addRoot := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if IsHidden(path) && path != root {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path)) && !IsHidden(path) {
				select {
				case evCh <- path:
				default:
					logger.Warn("watcher backlog full, dropping", "path", path)
				}
			}
			return nil
		})
	}
	for _, root := range cfg.Roots {
		if err := addRoot(root); err != nil {
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		// pending is only touched from this goroutine; the debounce timer
		// signals through its channel rather than flushing from a timer
		// goroutine.
		timer := time.NewTimer(time.Hour)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()
		pending := map[string]struct{}{}
		flush := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
					logger.Warn("watcher backlog full, dropping", "path", p)
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				flush()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					// Start watching directories created under a root.
					_ = w.Add(e.Name)
				}
				if !AllowedExt(filepath.Ext(e.Name)) || IsHidden(e.Name) {
					continue
				}
				if e.Op.Has(fsnotify.Create) || e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Rename) {
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if !timer.Stop() {
							select {
							case <-timer.C:
							default:
							}
						}
						timer.Reset(cfg.Debounce)
					} else {
						flush()
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "err", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
