package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/policy-intake/constants"
)

type WatchConfig struct {
	Roots       []string // watched recursively
	Exts        []string
	InitialScan bool          // emit files already present
	Debounce    time.Duration // coalesce write bursts per file
	Logger      *slog.Logger
}

// StartWatcher emits paths of matching files created or rewritten under the roots until ctx
// ends. Both channels are closed when the watcher stops.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	want := make(map[string]struct{}, len(cfg.Exts))
	for _, e := range cfg.Exts {
		want[constants.NormalizeExt(e)] = struct{}{}
	}
	matches := func(path string) bool {
		_, ok := want[constants.NormalizeExt(filepath.Ext(path))]
		return ok && !IsHidden(path)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	var initial []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && matches(path) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("watch.add_root.failed", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}
	sort.Strings(initial)

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(evCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watch.close.failed", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]time.Time{}
		tick := time.NewTicker(tickFor(cfg.Debounce))
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create != 0 {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("watch.add_dir.failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if matches(e.Name) && e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					pending[e.Name] = time.Now()
				}
			case now := <-tick.C:
				var ready []string
				for p, at := range pending {
					if now.Sub(at) >= cfg.Debounce {
						ready = append(ready, p)
					}
				}
				sort.Strings(ready)
				for _, p := range ready {
					delete(pending, p)
					if !emit(p) {
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()
	return evCh, errCh, nil
}

func tickFor(debounce time.Duration) time.Duration {
	if debounce <= 0 {
		return 50 * time.Millisecond
	}
	if t := debounce / 2; t > 10*time.Millisecond {
		return t
	}
	return 10 * time.Millisecond
}
