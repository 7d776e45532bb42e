// Package worker runs the download-transform-sync pipeline for each queued
// nav path.
package worker

import (
	"context"
	"fmt"

	"github.com/dbsmedya/statsync/internal/logger"
	"github.com/dbsmedya/statsync/internal/pxweb"
	"github.com/dbsmedya/statsync/internal/queue"
	"github.com/dbsmedya/statsync/internal/transform"
)

// TableDownloader fetches all chunks of one table.
type TableDownloader interface {
	Download(ctx context.Context, navPath string) ([]*pxweb.TableData, error)
}

// Transformer normalizes downloaded chunks into a frame.
type Transformer interface {
	Transform(payloads []*pxweb.TableData) (*transform.Frame, error)
}

// TableSyncer merges a frame into destination storage.
type TableSyncer interface {
	Sync(ctx context.Context, navPath string, frame *transform.Frame) (int64, error)
}

// Worker consumes refresh messages and runs the pipeline for each.
type Worker struct {
	subscriber  queue.Subscriber
	downloader  TableDownloader
	transformer Transformer
	syncer      TableSyncer
	logger      *logger.Logger
}

// New creates a Worker.
func New(sub queue.Subscriber, dl TableDownloader, tr Transformer, sync TableSyncer, log *logger.Logger) *Worker {
	return &Worker{
		subscriber:  sub,
		downloader:  dl,
		transformer: tr,
		syncer:      sync,
		logger:      log,
	}
}

// Run consumes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Worker started, waiting for refresh messages")
	return w.subscriber.Receive(ctx, w.Process)
}

// Process refreshes one table end to end. A failure at any stage leaves the
// reference timestamps untouched, so the table is rescheduled later.
func (w *Worker) Process(ctx context.Context, navPath string) error {
	log := w.logger.WithPath(navPath)
	log.Info("Refreshing table")

	payloads, err := w.downloader.Download(ctx, navPath)
	if err != nil {
		return fmt.Errorf("download failed for %s: %w", navPath, err)
	}

	frame, err := w.transformer.Transform(payloads)
	if err != nil {
		return fmt.Errorf("transform failed for %s: %w", navPath, err)
	}

	inserted, err := w.syncer.Sync(ctx, navPath, frame)
	if err != nil {
		return fmt.Errorf("sync failed for %s: %w", navPath, err)
	}

	log.Infof("Refresh complete: %d rows appended", inserted)
	return nil
}
