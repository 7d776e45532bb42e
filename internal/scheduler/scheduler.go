// Package scheduler enqueues stale tables for refresh.
package scheduler

import (
	"context"
	"time"

	"github.com/dbsmedya/statsync/internal/logger"
	"github.com/dbsmedya/statsync/internal/queue"
)

// RefSelector picks the nav paths due for refresh.
type RefSelector interface {
	SelectStale(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// Scheduler publishes one queue message per stale table, up to the batch
// size per run. Tables beyond the batch stay stale and are picked up by the
// next run.
type Scheduler struct {
	refs      RefSelector
	publisher queue.Publisher
	batchSize int
	logger    *logger.Logger
	now       func() time.Time
}

// New creates a Scheduler.
func New(refs RefSelector, publisher queue.Publisher, batchSize int, log *logger.Logger) *Scheduler {
	return &Scheduler{
		refs:      refs,
		publisher: publisher,
		batchSize: batchSize,
		logger:    log,
		now:       time.Now,
	}
}

// Run selects stale tables and enqueues them, returning how many were
// published. A failed publish does not stop the batch; the first publish
// error is returned after the rest have been attempted.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	paths, err := s.refs.SelectStale(ctx, s.now(), s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		s.logger.Info("No stale tables, nothing to schedule")
		return 0, nil
	}

	published := 0
	var firstErr error
	for _, path := range paths {
		id, err := s.publisher.Publish(ctx, path)
		if err != nil {
			s.logger.WithPath(path).Errorf("Failed to enqueue refresh: %v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.WithPath(path).Infof("Enqueued refresh as message %s", id)
		published++
	}

	s.logger.Infof("Scheduled %d of %d stale tables", published, len(paths))
	return published, firstErr
}
