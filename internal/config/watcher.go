package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Watcher re-reads the config file when it changes and adjusts the zap
// atomic level, so a running instance can be turned verbose without a
// restart. Only the logging level is hot; everything else needs a restart.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	level    zap.AtomicLevel
	log      *zap.Logger
	lastSeen time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for path, adjusting level on change.
func NewWatcher(path string, level zap.AtomicLevel, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher: fw,
		path:    filepath.Clean(path),
		level:   level,
		log:     log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; a missing file is not an error, the
// watch covers the directory so later creation is picked up.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.log.Warn("config watch failed", zap.String("dir", dir), zap.Error(err))
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
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
		w.log.Error("error closing config watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// Editors fire several events per save; settle before re-reading.
	const debounce = 300 * time.Millisecond
	var pending bool
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

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
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", zap.Error(err))
		case <-timer.C:
			pending = false
			w.reload()
		}
	}
}

// reload re-reads the file and applies the logging level.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed", zap.Error(err))
		return
	}
	lvl, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		w.log.Warn("invalid log level in config",
			zap.String("level", cfg.Logging.Level), zap.Error(err))
		return
	}
	if w.level.Level() != lvl {
		w.level.SetLevel(lvl)
		w.log.Info("log level updated", zap.String("level", lvl.String()))
	}
	w.mu.Lock()
	w.lastSeen = time.Now()
	w.mu.Unlock()
}
