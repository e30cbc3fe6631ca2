package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/querymap/pkg/inventory"

	// pure-Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeLayout is fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// NewSQLiteStoreWithDB wraps an already opened database handle.
func NewSQLiteStoreWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens a connection to the SQLite database.
// Use MemoryPath for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	if path == MemoryPath {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == MemoryPath {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.logger.Debug("opened state store", "path", path)
	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun implements Store.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.TableCount = len(run.Inventory)
	run.GroupCount = len(run.Groups)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, threshold, records, fallback_records, unresolved_refs, table_count, group_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Threshold, run.Records, run.FallbackRecs, run.UnresolvedRefs,
		run.TableCount, run.GroupCount, run.CreatedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, t := range run.Inventory {
		cols, err := json.Marshal(t.Columns)
		if err != nil {
			return fmt.Errorf("failed to encode columns of %s: %w", t.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_tables (run_id, position, table_name, columns) VALUES (?, ?, ?, ?)`,
			run.ID, i, t.Name, string(cols),
		); err != nil {
			return fmt.Errorf("failed to insert table %s: %w", t.Name, err)
		}
	}

	for i, g := range run.Groups {
		members, err := json.Marshal(g.Members)
		if err != nil {
			return fmt.Errorf("failed to encode group members: %w", err)
		}
		shared, err := json.Marshal(g.SharedColumns)
		if err != nil {
			return fmt.Errorf("failed to encode shared columns: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_groups (run_id, position, members, shared_columns, score) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, string(members), string(shared), g.Score,
		); err != nil {
			return fmt.Errorf("failed to insert group %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Debug("saved run", "run_id", run.ID, "tables", run.TableCount, "groups", run.GroupCount)
	return nil
}

const runColumns = `id, source, threshold, records, fallback_records, unresolved_refs, table_count, group_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var createdAt string
	if err := row.Scan(&run.ID, &run.Source, &run.Threshold, &run.Records, &run.FallbackRecs,
		&run.UnresolvedRefs, &run.TableCount, &run.GroupCount, &createdAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = ts
	return run, nil
}

// ListRuns implements Store. A limit of zero or less returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun implements Store.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if run.Inventory, err = s.runTables(ctx, id); err != nil {
		return nil, err
	}
	if run.Groups, err = s.runGroups(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) runTables(ctx context.Context, runID string) ([]inventory.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name, columns FROM run_tables WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := []inventory.Table{}
	for rows.Next() {
		var t inventory.Table
		var cols string
		if err := rows.Scan(&t.Name, &cols); err != nil {
			return nil, fmt.Errorf("failed to scan run table: %w", err)
		}
		if err := json.Unmarshal([]byte(cols), &t.Columns); err != nil {
			return nil, fmt.Errorf("failed to decode columns of %s: %w", t.Name, err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *SQLiteStore) runGroups(ctx context.Context, runID string) ([]inventory.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT members, shared_columns, score FROM run_groups WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	groups := []inventory.Group{}
	for rows.Next() {
		var g inventory.Group
		var members, shared string
		if err := rows.Scan(&members, &shared, &g.Score); err != nil {
			return nil, fmt.Errorf("failed to scan run group: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
			return nil, fmt.Errorf("failed to decode group members: %w", err)
		}
		if err := json.Unmarshal([]byte(shared), &g.SharedColumns); err != nil {
			return nil, fmt.Errorf("failed to decode shared columns: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
