// Package crawler discovers queryable table leaves in the catalog tree.
package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/statsync/internal/config"
	"github.com/dbsmedya/statsync/internal/logger"
	"github.com/dbsmedya/statsync/internal/pxweb"
)

// Leaf describes one discovered table node.
type Leaf struct {
	FullNavPath string // dot-delimited node ids from the catalog root
	Description string
}

// Navigator is the catalog cursor the crawler walks with.
// pxweb.Navigator satisfies this; tests substitute an in-memory tree.
type Navigator interface {
	Descend(id string)
	Ascend() error
	Children(ctx context.Context) ([]pxweb.NavItem, error)
	Path() string
}

// Crawler performs a depth-first traversal of the catalog, collecting table
// leaves in the catalog's own sibling order. It has no storage side effects.
type Crawler struct {
	nav        Navigator
	crawlDelay time.Duration
	retryDelay time.Duration
	logger     *logger.Logger
}

// New creates a Crawler over the given navigator.
func New(nav Navigator, cfg *config.APIConfig, log *logger.Logger) *Crawler {
	return &Crawler{
		nav:        nav,
		crawlDelay: time.Duration(cfg.CrawlDelaySeconds * float64(time.Second)),
		retryDelay: time.Duration(cfg.RetryDelaySeconds * float64(time.Second)),
		logger:     log,
	}
}

// Crawl walks the subtree rooted at startPath and returns every table leaf
// found, in traversal order. An empty startPath walks the whole catalog.
//
// Listing errors are retried once after the configured retry delay; a subtree
// whose listing keeps failing is skipped and the crawl continues. Only
// context cancellation aborts the crawl.
func (c *Crawler) Crawl(ctx context.Context, startPath string) ([]Leaf, error) {
	var descended int
	if startPath != "" {
		for _, seg := range strings.Split(startPath, ".") {
			c.nav.Descend(seg)
			descended++
		}
	}
	// Restore the navigator position no matter how the walk ends.
	defer func() {
		for i := 0; i < descended; i++ {
			_ = c.nav.Ascend()
		}
	}()

	start := time.Now()
	leaves, err := c.walk(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Infof("Crawl of %q complete: %d leaves found, duration: %s",
		startPath, len(leaves), time.Since(start))

	return leaves, nil
}

// walk lists the current node and recurses into branch children depth-first.
// Leaf children are collected before any branch is entered, preserving the
// catalog's declared sibling order.
func (c *Crawler) walk(ctx context.Context) ([]Leaf, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl interrupted: %w", err)
	}

	parentPath := c.nav.Path()

	children, err := c.listWithRetry(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("crawl interrupted: %w", ctx.Err())
		}
		// Unrecovered listing error: abandon this subtree, not the crawl.
		c.logger.Warnf("Skipping subtree %q after failed retry: %v", parentPath, err)
		return nil, nil
	}

	var leaves []Leaf
	var branches []pxweb.NavItem

	for _, child := range children {
		switch {
		case child.IsTable():
			leaves = append(leaves, Leaf{
				FullNavPath: joinPath(parentPath, child.ID),
				Description: child.Text,
			})
		case child.IsBranch():
			branches = append(branches, child)
		default:
			c.logger.Debugf("Ignoring node %q of unknown type %q under %q",
				child.ID, child.Type, parentPath)
		}
	}

	for _, branch := range branches {
		// Pace sibling requests to respect source throttling.
		if err := sleepCtx(ctx, c.crawlDelay); err != nil {
			return nil, fmt.Errorf("crawl interrupted: %w", err)
		}

		c.nav.Descend(branch.ID)
		sub, err := c.walk(ctx)
		if ascErr := c.nav.Ascend(); ascErr != nil {
			return nil, fmt.Errorf("navigator state corrupted under %q: %w", parentPath, ascErr)
		}
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, sub...)
	}

	return leaves, nil
}

// listWithRetry lists the current node, retrying once after a fixed delay.
func (c *Crawler) listWithRetry(ctx context.Context) ([]pxweb.NavItem, error) {
	children, err := c.nav.Children(ctx)
	if err == nil {
		return children, nil
	}

	c.logger.Warnf("Listing %q failed: %v. Retrying in %s", c.nav.Path(), err, c.retryDelay)
	if sleepErr := sleepCtx(ctx, c.retryDelay); sleepErr != nil {
		return nil, sleepErr
	}

	return c.nav.Children(ctx)
}

// joinPath appends a child id to a dot-delimited parent path.
func joinPath(parent, id string) string {
	if parent == "" {
		return id
	}
	return parent + "." + id
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
