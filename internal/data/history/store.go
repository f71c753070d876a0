// Package history persists per-hierarchy run snapshots in SQLite so that reports
// can show how diagnostics evolve between runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"scopebind/internal/shared/util"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultHierarchy   = "default"
	defaultBusyTimeout = 2 * time.Second
)

// ErrNoRuns is returned by LatestRun for a hierarchy without history.
var ErrNoRuns = errors.New("no runs recorded")

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates or opens the store at path. busyTimeout <= 0 uses two seconds.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}
	if dir := filepath.Dir(cleanPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun stores snap and its per-class counts in one transaction. Saving a run id
// again replaces the earlier row.
func (s *Store) SaveRun(ctx context.Context, snap RunSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(snap.RunID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	snap.Hierarchy = hierarchyKey(snap.Hierarchy)
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	if snap.SchemaVersion == 0 {
		snap.SchemaVersion = SchemaVersion
	}
	if snap.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d", snap.SchemaVersion)
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, snap.RunID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (
  run_id, hierarchy, schema_version, ts_utc, duration_ms, scope_count, binding_count, site_count,
  skipped_count, fields_injected, methods_invoked, global_registrations, pending_indirections,
  error_count, warning_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.RunID,
			snap.Hierarchy,
			snap.SchemaVersion,
			snap.Timestamp.UTC().Format(time.RFC3339Nano),
			snap.DurationMS,
			snap.ScopeCount,
			snap.BindingCount,
			snap.SiteCount,
			snap.SkippedCount,
			snap.FieldsInjected,
			snap.MethodsInvoked,
			snap.GlobalRegistrations,
			snap.PendingIndirections,
			snap.ErrorCount,
			snap.WarningCount,
		); err != nil {
			return err
		}
		for _, class := range util.SortedStringKeys(snap.ClassCounts) {
			if _, err := tx.ExecContext(ctx, `INSERT INTO run_diagnostics (run_id, class, count) VALUES (?, ?, ?)`,
				snap.RunID, class, snap.ClassCounts[class]); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadRuns returns the runs of a hierarchy recorded at or after since, oldest first.
func (s *Store) LoadRuns(ctx context.Context, hierarchy string, since time.Time) ([]RunSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT
  run_id, hierarchy, schema_version, ts_utc, duration_ms, scope_count, binding_count, site_count,
  skipped_count, fields_injected, methods_invoked, global_registrations, pending_indirections,
  error_count, warning_count
FROM runs
WHERE hierarchy = ?`
	args := []any{hierarchyKey(hierarchy)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	var runs []RunSnapshot
	err := s.withRetry("load runs", func() error {
		var qErr error
		runs, qErr = s.queryRuns(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	for i := range runs {
		counts, err := s.classCounts(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].ClassCounts = counts
	}
	return runs, nil
}

// LatestRun returns the most recent run of a hierarchy or ErrNoRuns.
func (s *Store) LatestRun(ctx context.Context, hierarchy string) (RunSnapshot, error) {
	runs, err := s.LoadRuns(ctx, hierarchy, time.Time{})
	if err != nil {
		return RunSnapshot{}, err
	}
	if len(runs) == 0 {
		return RunSnapshot{}, fmt.Errorf("%w for %q", ErrNoRuns, hierarchyKey(hierarchy))
	}
	return runs[len(runs)-1], nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]RunSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunSnapshot, 0)
	for rows.Next() {
		var (
			tsRaw string
			snap  RunSnapshot
		)
		if err := rows.Scan(
			&snap.RunID,
			&snap.Hierarchy,
			&snap.SchemaVersion,
			&tsRaw,
			&snap.DurationMS,
			&snap.ScopeCount,
			&snap.BindingCount,
			&snap.SiteCount,
			&snap.SkippedCount,
			&snap.FieldsInjected,
			&snap.MethodsInvoked,
			&snap.GlobalRegistrations,
			&snap.PendingIndirections,
			&snap.ErrorCount,
			&snap.WarningCount,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		snap.Timestamp = ts.UTC()
		runs = append(runs, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func (s *Store) classCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT class, count FROM run_diagnostics WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("load diagnostics of run %s: %w", runID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			class string
			n     int
		)
		if err := rows.Scan(&class, &n); err != nil {
			return nil, fmt.Errorf("scan diagnostic row: %w", err)
		}
		counts[class] = n
	}
	return counts, rows.Err()
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

func hierarchyKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultHierarchy
	}
	return name
}
