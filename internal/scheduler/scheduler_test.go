package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/statsync/internal/logger"
)

type fakeSelector struct {
	paths []string
	err   error

	gotLimit int
}

func (f *fakeSelector) SelectStale(_ context.Context, _ time.Time, limit int) ([]string, error) {
	f.gotLimit = limit
	return f.paths, f.err
}

type fakePublisher struct {
	published []string
	failOn    map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, navPath string) (string, error) {
	if err := f.failOn[navPath]; err != nil {
		return "", err
	}
	f.published = append(f.published, navPath)
	return "msg-1", nil
}

func (f *fakePublisher) Close() error { return nil }

func TestRunPublishesAllStalePaths(t *testing.T) {
	sel := &fakeSelector{paths: []string{"BE.A", "BE.B"}}
	pub := &fakePublisher{}

	count, err := New(sel, pub, 100, logger.NewDefault()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"BE.A", "BE.B"}, pub.published)
	assert.Equal(t, 100, sel.gotLimit)
}

func TestRunNothingStale(t *testing.T) {
	count, err := New(&fakeSelector{}, &fakePublisher{}, 100, logger.NewDefault()).
		Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunContinuesPastPublishFailure(t *testing.T) {
	sel := &fakeSelector{paths: []string{"BE.A", "BE.B", "BE.C"}}
	boom := errors.New("broker unavailable")
	pub := &fakePublisher{failOn: map[string]error{"BE.B": boom}}

	count, err := New(sel, pub, 100, logger.NewDefault()).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"BE.A", "BE.C"}, pub.published)
}

func TestRunSelectorError(t *testing.T) {
	boom := errors.New("db down")

	_, err := New(&fakeSelector{err: boom}, &fakePublisher{}, 100, logger.NewDefault()).
		Run(context.Background())
	require.ErrorIs(t, err, boom)
}
