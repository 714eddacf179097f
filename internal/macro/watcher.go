package macro

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before reloading.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a registry whenever macro files in its directory change.
type Watcher struct {
	loader   *Loader
	registry *Registry
	debounce time.Duration
	logger   *slog.Logger

	// OnReload is called after every reload attempt (optional)
	OnReload func(err error)
}

// NewWatcher creates a watcher that keeps registry in sync with dir.
func NewWatcher(dir string, registry *Registry, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		loader:   NewLoader(dir),
		registry: registry,
		debounce: DefaultDebounce,
		logger:   logger,
	}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.loader.Dir()); err != nil {
		return fmt.Errorf("failed to watch macros dir: %w", err)
	}
	w.logger.Info("watching macros", "dir", w.loader.Dir())

	var debounceTimer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !IsMacroFile(filepath.Base(event.Name)) {
				continue
			}

			w.logger.Debug("macro file changed", "file", event.Name, "op", event.Op.String())
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.Reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("macro watcher error", "error", err)
		}
	}
}

// Reload loads the directory again and swaps the registry contents.
// On failure the previous macros stay in place.
func (w *Watcher) Reload() {
	macros, err := w.loader.Load()
	if err == nil {
		err = w.registry.Replace(macros)
	}

	if err != nil {
		w.logger.Warn("macro reload failed", "error", err)
	} else {
		w.logger.Info("macros reloaded", "count", len(macros))
	}

	if w.OnReload != nil {
		w.OnReload(err)
	}
}
