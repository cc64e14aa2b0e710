package engine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"metacog/internal/config"
)

// ConfigWatcher watches the rule-table config file and hot-reloads the
// evaluator when it changes, so thresholds and rule tables can be tuned
// during an experiment without restarting the process.
type ConfigWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	evaluator   *Evaluator
	configPath  string
	debounceDur time.Duration
	pending     map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	logger      *zap.Logger

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	Reloads       int
	ReloadErrors  int
	LastEventTime time.Time
}

// NewConfigWatcher creates a watcher for the given config file path.
func NewConfigWatcher(configPath string, evaluator *Evaluator, logger *zap.Logger) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigWatcher{
		watcher:     w,
		evaluator:   evaluator,
		configPath:  configPath,
		debounceDur: 500 * time.Millisecond, // Batch rapid editor saves
		pending:     make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logger,
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watching the directory survives the rename-and-replace most editors
	// do on save; the event filter narrows back to the config file.
	if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
		w.logger.Warn("config watch failed", zap.String("path", w.configPath), zap.Error(err))
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("error closing watcher", zap.Error(err))
	}
}

// Stats returns a copy of the watcher counters.
func (w *ConfigWatcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *ConfigWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounce := time.NewTicker(100 * time.Millisecond)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))
		case <-debounce.C:
			w.flushPending()
		}
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.stats.LastEventTime = time.Now()
	w.mu.Unlock()
}

func (w *ConfigWatcher) flushPending() {
	w.mu.Lock()
	due := false
	for name, at := range w.pending {
		if time.Since(at) >= w.debounceDur {
			delete(w.pending, name)
			due = true
		}
	}
	w.mu.Unlock()
	if !due {
		return
	}

	cfg, err := config.Load(w.configPath)
	if err != nil {
		w.logger.Warn("config reload skipped", zap.Error(err))
		w.mu.Lock()
		w.stats.ReloadErrors++
		w.mu.Unlock()
		return
	}
	if err := w.evaluator.Reload(cfg); err != nil {
		w.logger.Warn("config reload rejected", zap.Error(err))
		w.mu.Lock()
		w.stats.ReloadErrors++
		w.mu.Unlock()
		return
	}
	w.mu.Lock()
	w.stats.Reloads++
	w.mu.Unlock()
	w.logger.Info("rule tables hot-reloaded", zap.String("path", w.configPath))
}
