package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sentiment_dashboard/internal/report"
	"sentiment_dashboard/internal/session"
	"sentiment_dashboard/internal/store"
)

// Stability polling for files still being written into the drop folder.
var (
	stableInterval = 500 * time.Millisecond
	stableRequired = 2
)

// LoadFile reads a dropped report once its size settles and installs it in the
// session derived from its file name. It returns that session id.
func (s *Service) LoadFile(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	format, err := report.ParseFormat(name)
	if err != nil {
		return "", err
	}
	if err := waitForStableSize(ctx, path, stableInterval, stableRequired); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	id := session.IDForFile(name)
	s.sessions.Ensure(id)
	_, err = s.Load(ctx, Request{
		SessionID: id,
		Filename:  name,
		Format:    format,
		Source:    store.SourceDrop,
		Data:      data,
	})
	return id, err
}

// waitForStableSize polls until the file size is unchanged for required
// consecutive checks. An empty file that stays empty counts as settled.
func waitForStableSize(ctx context.Context, path string, interval time.Duration, required int) error {
	var last int64 = -1
	stable := 0
	for {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		size := info.Size()
		if size == last {
			stable++
			if stable >= required {
				return nil
			}
		} else {
			stable = 0
		}
		last = size
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
