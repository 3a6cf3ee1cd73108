package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sentiment_dashboard/internal/config"
	"sentiment_dashboard/internal/httpapi"
	"sentiment_dashboard/internal/ingest"
	"sentiment_dashboard/internal/metrics"
	"sentiment_dashboard/internal/queue"
	"sentiment_dashboard/internal/session"
	"sentiment_dashboard/internal/store"
	"sentiment_dashboard/internal/watch"
)

const shutdownGrace = 10 * time.Second

// App wires the dashboard components together.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *store.Store
	sessions *session.Registry
	metrics  *metrics.Metrics
	ingest   *ingest.Service
	queue    *queue.Queue
	watcher  *watch.Watcher
	engine   *gin.Engine
}

func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	sessions := session.NewRegistry(cfg.SessionTTL, logger.Named("session"))
	m := metrics.New()
	svc := ingest.New(sessions, st, m, logger.Named("ingest"))

	var q *queue.Queue
	var w *watch.Watcher
	if cfg.EnableWatcher {
		q = queue.New(cfg.JobQueueSize, cfg.WorkerCount, cfg.JobTimeout(), logger.Named("queue"))
		w = watch.New(cfg.ReportsDir, q, svc, m, logger.Named("watch"))
	}

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), httpapi.RequestLogger(logger.Named("http")))
	router := httpapi.NewRouter(httpapi.Deps{
		Sessions:       sessions,
		Ingest:         svc,
		Store:          st,
		Queue:          q,
		Metrics:        m,
		Logger:         logger.Named("http"),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Analysis:       cfg.Analysis.Options(),
	})
	router.Register(engine)

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		sessions: sessions,
		metrics:  m,
		ingest:   svc,
		queue:    q,
		watcher:  w,
		engine:   engine,
	}, nil
}

// Run starts workers, watcher, sweepers and the HTTP server, and blocks until
// ctx is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	if a.queue != nil {
		a.queue.Start(ctx)
		if err := a.watcher.Start(ctx); err != nil {
			return err
		}
		go func() {
			n, err := a.watcher.Backfill(ctx)
			if err != nil {
				a.logger.Warn("backfill failed", zap.Error(err))
				return
			}
			a.logger.Info("backfill enqueued reports", zap.Int("count", n))
		}()
	}
	go a.sessions.RunSweeper(ctx, a.cfg.SweepInterval)
	go a.pruneHistory(ctx)

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.engine}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", zap.String("addr", a.cfg.HTTPPort), zap.String("environment", a.cfg.Environment))
		errCh <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	if a.queue != nil {
		a.queue.Stop(shutdownCtx)
	}
	return runErr
}

// pruneHistory drops upload history older than the retention window, once at
// start and then hourly.
func (a *App) pruneHistory(ctx context.Context) {
	if a.cfg.HistoryRetention <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		n, err := a.store.Prune(ctx, time.Now().Add(-a.cfg.HistoryRetention))
		switch {
		case err != nil && ctx.Err() == nil:
			a.logger.Warn("prune upload history", zap.Error(err))
		case n > 0:
			a.logger.Info("pruned upload history", zap.Int64("rows", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) Handler() http.Handler { return a.engine }
func (a *App) Store() *store.Store { return a.store }
func (a *App) Sessions() *session.Registry { return a.sessions }
func (a *App) Ingest() *ingest.Service { return a.ingest }
func (a *App) Queue() *queue.Queue { return a.queue }
func (a *App) Metrics() *metrics.Metrics { return a.metrics }
