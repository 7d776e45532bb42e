// Package refstore persists the registry of discovered catalog tables and
// their staleness timestamps.
package refstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbsmedya/statsync/internal/logger"
)

// SentinelLastUpdate is the last_update value given to a freshly discovered
// reference: far enough in the past that the first scheduling pass picks it up.
var SentinelLastUpdate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Reference is one row of the reference table.
type Reference struct {
	FullNavPath string
	Description string
	LastUpdate  sql.NullTime
	NextUpdate  sql.NullTime
}

// Frozen reports whether the reference can never match the scheduler
// predicate again: next_update at or before last_update means no cycle will
// select it until an operator intervenes.
func (r Reference) Frozen() bool {
	return r.LastUpdate.Valid && r.NextUpdate.Valid &&
		!r.NextUpdate.Time.After(r.LastUpdate.Time)
}

// Store provides access to the scb_ref reference table and the per-table
// sync metadata.
type Store struct {
	db        *sql.DB
	staleness time.Duration
	logger    *logger.Logger
}

// New creates a Store. staleness is the interval added to next_update after
// a successful sync.
func New(db *sql.DB, staleness time.Duration, log *logger.Logger) *Store {
	return &Store{
		db:        db,
		staleness: staleness,
		logger:    log,
	}
}

// EnsureSchema idempotently creates the reference and metadata tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS scb_ref (
			full_nav_path varchar(100) PRIMARY KEY,
			description text NOT NULL,
			last_update timestamp NULL,
			next_update timestamp NULL
		)`,
	); err != nil {
		return fmt.Errorf("failed to create scb_ref table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS metadata (
			table_name text PRIMARY KEY,
			last_updated timestamp
		)`,
	); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	return nil
}

// KnownPaths returns the set of nav paths already registered.
func (s *Store) KnownPaths(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT full_nav_path FROM scb_ref`)
	if err != nil {
		return nil, fmt.Errorf("failed to read known paths: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan nav path: %w", err)
		}
		known[path] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating known paths: %w", err)
	}

	return known, nil
}

// RegisterLeaves inserts references for leaves not yet known, with the
// sentinel last_update and next_update set to now so the next scheduling
// pass queues the initial download. Returns the number of new references.
func (s *Store) RegisterLeaves(ctx context.Context, leaves []Reference, now time.Time) (int, error) {
	known, err := s.KnownPaths(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scb_ref (full_nav_path, description, last_update, next_update)
		 VALUES ($1, $2, $3, $4)`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, leaf := range leaves {
		if known[leaf.FullNavPath] {
			continue
		}
		if _, err := stmt.ExecContext(ctx, leaf.FullNavPath, leaf.Description, SentinelLastUpdate, now); err != nil {
			return 0, fmt.Errorf("failed to insert reference %s: %w", leaf.FullNavPath, err)
		}
		// The crawl itself may emit a path twice; first one wins.
		known[leaf.FullNavPath] = true
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit new references: %w", err)
	}
	tx = nil

	s.logger.Infof("Registered %d new references (%d already known)", inserted, len(leaves)-inserted)
	return inserted, nil
}

// SelectStale returns up to limit nav paths due for refresh: next_update has
// passed and lies after last_update (a pending, not-yet-honored schedule).
func (s *Store) SelectStale(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT full_nav_path FROM scb_ref
		 WHERE next_update < $1 AND next_update > last_update
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale references: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan stale reference: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale references: %w", err)
	}

	return paths, nil
}

// MarkSynced advances the staleness timestamps after a successful sync.
// Callers skip this on failure so the table stays eligible next cycle.
func (s *Store) MarkSynced(ctx context.Context, navPath string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scb_ref
		 SET last_update = $1, next_update = $2
		 WHERE full_nav_path = $3`,
		now, now.Add(s.staleness), navPath,
	)
	if err != nil {
		return fmt.Errorf("failed to mark %s synced: %w", navPath, err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		s.logger.Warnf("No reference row for %s; timestamps not advanced", navPath)
	}
	return nil
}

// UpsertMetadata records the last successful sync time for a destination table.
func (s *Store) UpsertMetadata(ctx context.Context, tableName string, now time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (table_name, last_updated)
		 VALUES ($1, $2)
		 ON CONFLICT (table_name)
		 DO UPDATE SET last_updated = EXCLUDED.last_updated`,
		tableName, now,
	); err != nil {
		return fmt.Errorf("failed to upsert metadata for %s: %w", tableName, err)
	}
	return nil
}

// List returns all references ordered by nav path, for status reporting.
func (s *Store) List(ctx context.Context) ([]Reference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT full_nav_path, description, last_update, next_update
		 FROM scb_ref
		 ORDER BY full_nav_path`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var ref Reference
		if err := rows.Scan(&ref.FullNavPath, &ref.Description, &ref.LastUpdate, &ref.NextUpdate); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating references: %w", err)
	}

	return refs, nil
}
