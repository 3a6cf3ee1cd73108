// Package ingest turns uploaded or dropped bytes into a session's report and
// records every attempt.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sentiment_dashboard/internal/metrics"
	"sentiment_dashboard/internal/report"
	"sentiment_dashboard/internal/session"
	"sentiment_dashboard/internal/store"
)

// Request is one load attempt.
type Request struct {
	SessionID string
	Filename  string
	Format    report.Format
	Source    string
	Data      []byte
}

// Service loads reports into sessions.
type Service struct {
	sessions *session.Registry
	store    *store.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// New wires a Service. store and m may be nil.
func New(sessions *session.Registry, st *store.Store, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Service{sessions: sessions, store: st, metrics: m, logger: logger, now: time.Now}
}

// Load parses req.Data and installs the result in the session, replacing what
// was there. On failure the session is cleared and a *report.ParseError is
// returned; no partial table is ever installed.
func (s *Service) Load(ctx context.Context, req Request) (*report.Report, error) {
	now := s.now()
	log := s.logger.With(
		zap.String("session", req.SessionID),
		zap.String("file", req.Filename),
		zap.String("source", req.Source),
	)

	rep, loadErr := report.Load(req.Data, req.Format, now)
	s.metrics.RecordLoad(len(req.Data), loadErr)

	var installErr error
	if loadErr != nil {
		installErr = s.sessions.Clear(req.SessionID)
	} else {
		installErr = s.sessions.Put(req.SessionID, req.Filename, rep)
	}

	s.record(ctx, req, rep, loadErr, now)

	if installErr != nil {
		if errors.Is(installErr, session.ErrNotFound) {
			return nil, installErr
		}
		return nil, fmt.Errorf("install report: %w", installErr)
	}
	if loadErr != nil {
		log.Warn("report load failed", zap.String("size", humanize.Bytes(uint64(len(req.Data)))), zap.Error(loadErr))
		return nil, loadErr
	}
	log.Info("report loaded",
		zap.String("format", string(rep.Format)),
		zap.Int("rows", rep.Table.Len()),
		zap.String("size", humanize.Bytes(uint64(len(req.Data)))),
	)
	return rep, nil
}

func (s *Service) record(ctx context.Context, req Request, rep *report.Report, loadErr error, now time.Time) {
	if s.store == nil {
		return
	}
	u := store.Upload{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Source:    req.Source,
		Filename:  req.Filename,
		Format:    string(req.Format),
		Status:    store.StatusLoaded,
		SizeBytes: int64(len(req.Data)),
		CreatedAt: now,
	}
	if rep != nil {
		u.RowCount = rep.Table.Len()
	}
	if loadErr != nil {
		msg := loadErr.Error()
		u.Status = store.StatusFailed
		u.LastError = &msg
	}
	if err := s.store.RecordUpload(ctx, u); err != nil {
		s.logger.Warn("record upload failed", zap.String("session", req.SessionID), zap.Error(err))
	}
}

// Metrics exposes the counters the service updates.
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }
