// Package session holds the loaded report of each dashboard user. Sessions
// share nothing; each one owns at most one report at a time.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sentiment_dashboard/internal/report"
)

var (
	// ErrNotFound is returned for an unknown or expired session.
	ErrNotFound = errors.New("session not found")
	// ErrEmpty is returned when a session exists but holds no report.
	ErrEmpty = errors.New("session has no report loaded")
)

// dropNamespace scopes name-based ids for files picked up from the drop folder.
var dropNamespace = uuid.MustParse("6f1d3c2e-8a4b-5c7d-9e0f-1a2b3c4d5e6f")

// IDForFile derives a stable session id from a drop-folder file name.
func IDForFile(name string) string {
	return uuid.NewSHA1(dropNamespace, []byte(name)).String()
}

// Info describes a session without exposing its report.
type Info struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename,omitempty"`
	Loaded    bool      `json:"loaded"`
	CreatedAt time.Time `json:"created_at"`
	TouchedAt time.Time `json:"touched_at"`
}

type entry struct {
	info   Info
	report *report.Report
}

// Registry maps session ids to their reports.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry returns an empty registry. A ttl of zero disables expiry.
func NewRegistry(ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create starts an empty session with a random id.
func (r *Registry) Create() Info {
	return r.Ensure(uuid.NewString())
}

// Ensure returns the session with id, creating an empty one if needed.
func (r *Registry) Ensure(id string) Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e, ok := r.sessions[id]
	if !ok {
		e = &entry{info: Info{ID: id, CreatedAt: now}}
		r.sessions[id] = e
	}
	e.info.TouchedAt = now
	return e.info
}

// Put installs rep as the session's report, replacing any previous one.
func (r *Registry) Put(id, filename string, rep *report.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.report = rep
	e.info.Filename = filename
	e.info.Loaded = rep != nil
	e.info.TouchedAt = r.now()
	return nil
}

// Clear drops the session's report, returning it to the pre-upload state.
func (r *Registry) Clear(id string) error {
	return r.Put(id, "", nil)
}

// Report returns the session's report.
func (r *Registry) Report(id string) (*report.Report, Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, Info{}, ErrNotFound
	}
	e.info.TouchedAt = r.now()
	if e.report == nil {
		return nil, e.info, ErrEmpty
	}
	return e.report, e.info, nil
}

// Info returns the session's description.
func (r *Registry) Info(id string) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return Info{}, ErrNotFound
	}
	return e.info, nil
}

// Delete removes the session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	n := 0
	for id, e := range r.sessions {
		if e.info.TouchedAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("expired idle sessions", zap.Int("count", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}
