// Package syncer merges transformed frames into per-table destination
// storage, appending only rows whose primary key is not yet present.
package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dbsmedya/statsync/internal/logger"
	"github.com/dbsmedya/statsync/internal/refstore"
	"github.com/dbsmedya/statsync/internal/sqlutil"
	"github.com/dbsmedya/statsync/internal/transform"
)

// ErrEmptyFrame is returned when there is no frame content to sync. The
// caller must not advance staleness timestamps in that case.
var ErrEmptyFrame = errors.New("empty frame, nothing to sync")

// TableName derives the destination table name from a nav path.
func TableName(navPath string) string {
	return strings.ReplaceAll(navPath, ".", "_")
}

// Syncer performs the incremental merge step of the pipeline.
type Syncer struct {
	db     *sql.DB
	refs   *refstore.Store
	logger *logger.Logger
	now    func() time.Time
}

// New creates a Syncer writing to db and advancing timestamps in refs.
func New(db *sql.DB, refs *refstore.Store, log *logger.Logger) *Syncer {
	return &Syncer{
		db:     db,
		refs:   refs,
		logger: log,
		now:    time.Now,
	}
}

// Sync merges the frame into the destination table for navPath and returns
// the number of appended rows. Existing rows are never updated or deleted.
//
// On success the reference timestamps advance and the metadata table is
// upserted; on any error they are left untouched so the next scheduling
// cycle retries the table.
func (s *Syncer) Sync(ctx context.Context, navPath string, frame *transform.Frame) (int64, error) {
	if frame == nil || frame.Empty() {
		return 0, ErrEmptyFrame
	}

	tableName := TableName(navPath)
	log := s.logger.WithTable(tableName)

	quotedTable, err := sqlutil.QuoteIdentifierSafe(tableName)
	if err != nil {
		return 0, fmt.Errorf("bad destination table name: %w", err)
	}
	if len(frame.KeyColumns) == 0 {
		return 0, fmt.Errorf("no key columns inferred for %s", tableName)
	}

	if err := s.ensureTable(ctx, quotedTable, frame); err != nil {
		return 0, err
	}

	existing, err := s.existingKeys(ctx, quotedTable, frame)
	if err != nil {
		return 0, err
	}

	newRows := filterNewRows(frame, existing)
	log.Infof("%d of %d rows are new (%d already stored)",
		len(newRows), len(frame.Rows), len(frame.Rows)-len(newRows))

	var inserted int64
	if len(newRows) > 0 {
		inserted, err = s.appendRows(ctx, quotedTable, frame.Columns, newRows)
		if err != nil {
			return 0, err
		}
	}

	now := s.now()
	if err := s.refs.UpsertMetadata(ctx, tableName, now); err != nil {
		return inserted, err
	}
	if err := s.refs.MarkSynced(ctx, navPath, now); err != nil {
		return inserted, err
	}

	log.Infof("Sync complete: %d rows appended", inserted)
	return inserted, nil
}

// ensureTable idempotently creates the destination table with a primary key
// over the frame's key columns. Column types are inferred from the first
// non-nil cell per column.
func (s *Syncer) ensureTable(ctx context.Context, quotedTable string, frame *transform.Frame) error {
	defs := make([]string, 0, len(frame.Columns))
	for i, col := range frame.Columns {
		quoted, err := sqlutil.QuoteIdentifierSafe(col)
		if err != nil {
			return fmt.Errorf("bad column name: %w", err)
		}
		defs = append(defs, quoted+" "+columnType(frame.Rows, i))
	}

	keys := make([]string, 0, len(frame.KeyColumns))
	for _, col := range frame.KeyColumns {
		quoted, err := sqlutil.QuoteIdentifierSafe(col)
		if err != nil {
			return fmt.Errorf("bad key column name: %w", err)
		}
		keys = append(keys, quoted)
	}

	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY (%s))",
		quotedTable,
		strings.Join(defs, ", "),
		strings.Join(keys, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure table %s: %w", quotedTable, err)
	}
	return nil
}

// columnType infers the SQL type of column i from the first typed cell.
func columnType(rows [][]interface{}, i int) string {
	for _, row := range rows {
		switch row[i].(type) {
		case nil:
			continue
		case float64:
			return "double precision"
		case time.Time:
			return "timestamp"
		default:
			return "text"
		}
	}
	return "text"
}

// existingKeys reads the destination table's current key tuples. The full
// table is read for comparison, which bounds supported table sizes.
func (s *Syncer) existingKeys(ctx context.Context, quotedTable string, frame *transform.Frame) (map[string]bool, error) {
	keys := make([]string, 0, len(frame.KeyColumns))
	for _, col := range frame.KeyColumns {
		quoted, err := sqlutil.QuoteIdentifierSafe(col)
		if err != nil {
			return nil, fmt.Errorf("bad key column name: %w", err)
		}
		keys = append(keys, quoted)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(keys, ", "), quotedTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing keys from %s: %w", quotedTable, err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		values := make([]interface{}, len(frame.KeyColumns))
		ptrs := make([]interface{}, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan existing key: %w", err)
		}
		existing[keyString(values)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating existing keys: %w", err)
	}

	return existing, nil
}

// filterNewRows drops rows whose key tuple is already stored, and
// deduplicates key tuples within the batch itself (first occurrence wins).
func filterNewRows(frame *transform.Frame, existing map[string]bool) [][]interface{} {
	keyIdx := make([]int, 0, len(frame.KeyColumns))
	for _, key := range frame.KeyColumns {
		for i, col := range frame.Columns {
			if col == key {
				keyIdx = append(keyIdx, i)
				break
			}
		}
	}

	seen := make(map[string]bool, len(existing))
	for k := range existing {
		seen[k] = true
	}

	var newRows [][]interface{}
	for _, row := range frame.Rows {
		tuple := make([]interface{}, len(keyIdx))
		for i, idx := range keyIdx {
			tuple[i] = row[idx]
		}
		k := keyString(tuple)
		if seen[k] {
			continue
		}
		seen[k] = true
		newRows = append(newRows, row)
	}
	return newRows
}

// keyString builds a canonical comparison key from a tuple of scanned or
// transformed values. Numeric and temporal values render identically whether
// they come from the database or the transformer.
func keyString(values []interface{}) string {
	parts := make([]string, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case nil:
			parts[i] = "\x00"
		case string:
			parts[i] = t
		case []byte:
			parts[i] = string(t)
		case float64:
			parts[i] = strconv.FormatFloat(t, 'g', -1, 64)
		case int64:
			parts[i] = strconv.FormatFloat(float64(t), 'g', -1, 64)
		case time.Time:
			parts[i] = t.UTC().Format(time.RFC3339)
		default:
			parts[i] = fmt.Sprintf("%v", t)
		}
	}
	return strings.Join(parts, "\x1f")
}

// appendRows inserts the rows in one transaction. ON CONFLICT DO NOTHING
// keeps the append idempotent under redelivery and concurrent workers: a
// racing duplicate becomes a skipped row, not an error.
func (s *Syncer) appendRows(ctx context.Context, quotedTable string, columns []string, rows [][]interface{}) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	quotedCols := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted, err := sqlutil.QuoteIdentifierSafe(col)
		if err != nil {
			return 0, fmt.Errorf("bad column name: %w", err)
		}
		quotedCols[i] = quoted
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		quotedTable,
		strings.Join(quotedCols, ", "),
		strings.Join(placeholders, ", "),
	))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("sync interrupted: %w", err)
		}
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert row: %w", err)
		}
		affected, _ := res.RowsAffected()
		inserted += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit append: %w", err)
	}
	tx = nil

	return inserted, nil
}
