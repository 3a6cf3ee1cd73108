package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"sentiment_dashboard/internal/metrics"
	"sentiment_dashboard/internal/queue"
)

// Loader installs a dropped report file.
type Loader interface {
	LoadFile(ctx context.Context, path string) (string, error)
}

// Watcher monitors the reports directory for new result files and enqueues
// load jobs.
type Watcher struct {
	dir     string
	queue   *queue.Queue
	loader  Loader
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New returns a watcher over dir.
func New(dir string, q *queue.Queue, loader Loader, m *metrics.Metrics, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Watcher{dir: dir, queue: q, loader: loader, metrics: m, logger: logger}
}

// Start begins watching until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && IsReport(evt.Name) {
					if _, err := os.Stat(evt.Name); err == nil {
						w.enqueue(ctx, evt.Name)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}()
	w.logger.Info("watching reports directory", zap.String("dir", w.dir))
	return nil
}

// IsReport reports whether path names a loadable result file.
func IsReport(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".csv":
		return true
	default:
		return false
	}
}

// Backfill enqueues loads for files already present.
func (w *Watcher) Backfill(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !IsReport(e.Name()) {
			continue
		}
		if w.enqueue(ctx, filepath.Join(w.dir, e.Name())) {
			n++
		}
	}
	return n, nil
}

func (w *Watcher) enqueue(ctx context.Context, path string) bool {
	name := filepath.Base(path)
	ok, _ := w.queue.EnqueueWithRetry(ctx, queue.Job{
		ID:     name,
		Source: "watcher",
		Work: func(jobCtx context.Context) error {
			id, err := w.loader.LoadFile(jobCtx, path)
			if err == nil {
				w.logger.Info("dropped report available", zap.String("file", name), zap.String("session", id))
			}
			return err
		},
		OnFinish: func(err error) {
			w.metrics.RecordJobCompletion(err)
			st := w.queue.Stats()
			w.metrics.UpdateQueue(st.Length, st.Capacity, st.WorkerCount)
		},
	}, 2*time.Second, 100*time.Millisecond)
	st := w.queue.Stats()
	w.metrics.UpdateQueue(st.Length, st.Capacity, st.WorkerCount)
	return ok
}
