package downloader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/statsync/internal/config"
	"github.com/dbsmedya/statsync/internal/logger"
	"github.com/dbsmedya/statsync/internal/pxweb"
)

// ErrDownloadExhausted marks a table download that failed on every attempt.
// The worker treats it as a soft failure: the table stays eligible for the
// next scheduling cycle.
var ErrDownloadExhausted = errors.New("download attempts exhausted")

// Client is the slice of the API client the downloader needs.
type Client interface {
	Metadata(ctx context.Context, path []string) (*pxweb.TableMeta, error)
	Query(ctx context.Context, path []string, sel *pxweb.Selection) (*pxweb.TableData, error)
}

// Downloader fetches a table's full Cartesian product as an ordered sequence
// of budget-sized payloads, pacing requests to respect the source's rate
// limit.
type Downloader struct {
	client      Client
	rowBudget   int
	paceEvery   int
	paceDelay   time.Duration
	maxAttempts int
	logger      *logger.Logger
}

// New creates a Downloader from API configuration.
func New(client Client, cfg *config.APIConfig, log *logger.Logger) *Downloader {
	return &Downloader{
		client:      client,
		rowBudget:   cfg.RowBudget,
		paceEvery:   cfg.PaceEvery,
		paceDelay:   time.Duration(cfg.PaceSeconds * float64(time.Second)),
		maxAttempts: cfg.MaxAttempts,
		logger:      log,
	}
}

// Download fetches all payloads for the table at navPath.
//
// The whole-table download is retried up to the configured attempt count,
// sleeping attempt-squared seconds between attempts. Exhaustion returns an
// error wrapping ErrDownloadExhausted.
func (d *Downloader) Download(ctx context.Context, navPath string) ([]*pxweb.TableData, error) {
	log := d.logger.WithPath(navPath)
	path := strings.Split(navPath, ".")

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		payloads, err := d.downloadOnce(ctx, path, log)
		if err == nil {
			log.Infof("Successfully downloaded %s (%d chunks)", navPath, len(payloads))
			return payloads, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("download of %s interrupted: %w", navPath, ctx.Err())
		}

		lastErr = err
		log.Warnf("Download attempt %d/%d for %s failed: %v", attempt, d.maxAttempts, navPath, err)

		if attempt < d.maxAttempts {
			backoff := time.Duration(attempt*attempt) * time.Second
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, fmt.Errorf("download of %s interrupted: %w", navPath, err)
			}
		}
	}

	return nil, fmt.Errorf("could not download %s after %d attempts: %w (last error: %v)",
		navPath, d.maxAttempts, ErrDownloadExhausted, lastErr)
}

// downloadOnce performs a single full-table download pass.
func (d *Downloader) downloadOnce(ctx context.Context, path []string, log *logger.Logger) ([]*pxweb.TableData, error) {
	meta, err := d.client.Metadata(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch table metadata: %w", err)
	}

	plan, err := PlanChunks(meta, d.rowBudget)
	if err != nil {
		return nil, fmt.Errorf("failed to plan chunks: %w", err)
	}

	if plan.Clamped {
		log.Warnf("Fixed dimensions alone yield %d datapoints, over the %d budget. Querying one %q value at a time anyway",
			plan.FixedRows, d.rowBudget, plan.ChunkDim().Code)
	}
	log.Infof("Processing %d chunks over %q (%d datapoints per query)",
		len(plan.Chunks), plan.ChunkDim().Code, plan.RowsPerQuery())

	payloads := make([]*pxweb.TableData, 0, len(plan.Chunks))
	for i, chunk := range plan.Chunks {
		// The source's rate limiter sets in after roughly paceEvery
		// consecutive requests, so pause before continuing.
		if i > 0 && d.paceEvery > 0 && i%d.paceEvery == 0 {
			log.Debugf("Pacing: sleeping %s after %d requests", d.paceDelay, i)
			if err := sleepCtx(ctx, d.paceDelay); err != nil {
				return nil, err
			}
		}

		clog := log.WithChunk(i + 1)
		clog.Debugf("Querying %d values of %q", len(chunk), plan.ChunkDim().Code)

		data, err := d.client.Query(ctx, path, plan.Selection(chunk))
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d failed: %w", i+1, len(plan.Chunks), err)
		}
		payloads = append(payloads, data)
	}

	return payloads, nil
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
