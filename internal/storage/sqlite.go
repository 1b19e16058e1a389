package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to enable WAL mode")
		}
	}

	// SQLite benefits from a single writer; this also keeps :memory: databases
	// on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and
// applies pending migrations. A leading "~/" is expanded.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		expanded, err := ExpandPath(dbPath)
		if err != nil {
			return nil, err
		}
		dbPath = expanded
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to apply migrations")
	}

	return &SQLiteStorage{db: db}, nil
}

// ExpandPath expands a leading "~/" to the user's home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Times are stored as unix milliseconds so both drivers round-trip them
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// Run operations

const runColumns = `id, root_path, started_at, finished_at, created_count,
       overwritten_count, unchanged_count, applied, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                          Run
		started, finished, createdAt int64
	)
	err := row.Scan(&run.ID, &run.RootPath, &started, &finished,
		&run.Created, &run.Overwritten, &run.Unchanged, &run.Applied, &createdAt)
	if err != nil {
		return nil, err
	}
	run.StartedAt = fromMillis(started)
	run.FinishedAt = fromMillis(finished)
	run.CreatedAt = fromMillis(createdAt)
	return &run, nil
}

// createRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createRunWithQuerier(ctx context.Context, q querier, run *Run) error {
	query := `
		INSERT INTO runs (root_path, started_at, finished_at, created_count,
		                  overwritten_count, unchanged_count, applied, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		run.RootPath, toMillis(run.StartedAt), toMillis(run.FinishedAt),
		run.Created, run.Overwritten, run.Unchanged, run.Applied, toMillis(now))
	if err != nil {
		return errors.Wrap(err, "failed to create run")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	run.CreatedAt = fromMillis(toMillis(now))
	return nil
}

func (s *SQLiteStorage) CreateRun(ctx context.Context, run *Run) error {
	return s.createRunWithQuerier(ctx, s.querier(), run)
}

func (s *SQLiteStorage) getRunWithQuerier(ctx context.Context, q querier, runID int64) (*Run, error) {
	row := q.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func (s *SQLiteStorage) GetRun(ctx context.Context, runID int64) (*Run, error) {
	return s.getRunWithQuerier(ctx, s.querier(), runID)
}

func (s *SQLiteStorage) getLatestRunWithQuerier(ctx context.Context, q querier, rootPath string) (*Run, error) {
	row := q.QueryRowContext(ctx, "SELECT "+runColumns+`
		FROM runs
		WHERE root_path = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT 1`, rootPath)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func (s *SQLiteStorage) GetLatestRun(ctx context.Context, rootPath string) (*Run, error) {
	return s.getLatestRunWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) listRunsWithQuerier(ctx context.Context, q querier, rootPath string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if rootPath == "" {
		rows, err = q.QueryContext(ctx, "SELECT "+runColumns+`
			FROM runs ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = q.QueryContext(ctx, "SELECT "+runColumns+`
			FROM runs WHERE root_path = ? ORDER BY finished_at DESC, id DESC LIMIT ?`, rootPath, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRuns returns the most recent runs of rootPath, newest first. An empty
// rootPath lists every root.
func (s *SQLiteStorage) ListRuns(ctx context.Context, rootPath string, limit int) ([]*Run, error) {
	return s.listRunsWithQuerier(ctx, s.querier(), rootPath, limit)
}

func (s *SQLiteStorage) deleteRunsBeforeWithQuerier(ctx context.Context, q querier, rootPath string, before time.Time) (int, error) {
	result, err := q.ExecContext(ctx,
		"DELETE FROM runs WHERE root_path = ? AND finished_at < ?", rootPath, toMillis(before))
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete runs")
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// DeleteRunsBefore prunes the history of rootPath
func (s *SQLiteStorage) DeleteRunsBefore(ctx context.Context, rootPath string, before time.Time) (int, error) {
	return s.deleteRunsBeforeWithQuerier(ctx, s.querier(), rootPath, before)
}

// Stub operations

func (s *SQLiteStorage) insertStubWithQuerier(ctx context.Context, q querier, stub *StubRecord) error {
	now := time.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO stubs (run_id, init_path, stub_path, bucket, symbol_count, body_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, stub.RunID, stub.InitPath, stub.StubPath, stub.Bucket, stub.SymbolCount,
		stub.BodyHash[:], toMillis(now))
	if err != nil {
		return errors.Wrapf(err, "failed to insert stub %s", stub.StubPath)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	stub.ID = id
	stub.CreatedAt = fromMillis(toMillis(now))

	for _, name := range stub.Symbols {
		if _, err := q.ExecContext(ctx,
			"INSERT OR IGNORE INTO stub_symbols (stub_id, name) VALUES (?, ?)", id, name); err != nil {
			return errors.Wrapf(err, "failed to insert symbol %s", name)
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertStub(ctx context.Context, stub *StubRecord) error {
	return s.insertStubWithQuerier(ctx, s.querier(), stub)
}

const stubColumns = `s.id, s.run_id, s.init_path, s.stub_path, s.bucket, s.symbol_count, s.body_hash, s.created_at`

func (s *SQLiteStorage) queryStubs(ctx context.Context, q querier, query string, args ...interface{}) ([]*StubRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query stubs")
	}

	var stubs []*StubRecord
	for rows.Next() {
		var (
			stub      StubRecord
			hash      []byte
			createdAt int64
		)
		if err := rows.Scan(&stub.ID, &stub.RunID, &stub.InitPath, &stub.StubPath,
			&stub.Bucket, &stub.SymbolCount, &hash, &createdAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		copy(stub.BodyHash[:], hash)
		stub.CreatedAt = fromMillis(createdAt)
		stubs = append(stubs, &stub)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// close before the symbol queries: the pool has a single connection
	_ = rows.Close()

	for _, stub := range stubs {
		names, err := s.stubSymbols(ctx, q, stub.ID)
		if err != nil {
			return nil, err
		}
		stub.Symbols = names
	}
	return stubs, nil
}

func (s *SQLiteStorage) stubSymbols(ctx context.Context, q querier, stubID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM stub_symbols WHERE stub_id = ? ORDER BY name", stubID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query stub symbols")
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) listStubsWithQuerier(ctx context.Context, q querier, runID int64) ([]*StubRecord, error) {
	return s.queryStubs(ctx, q, "SELECT "+stubColumns+`
		FROM stubs s WHERE s.run_id = ? ORDER BY s.stub_path`, runID)
}

func (s *SQLiteStorage) ListStubs(ctx context.Context, runID int64) ([]*StubRecord, error) {
	return s.listStubsWithQuerier(ctx, s.querier(), runID)
}

func (s *SQLiteStorage) findStubsBySymbolWithQuerier(ctx context.Context, q querier, runID int64, symbol string) ([]*StubRecord, error) {
	return s.queryStubs(ctx, q, "SELECT "+stubColumns+`
		FROM stubs s
		JOIN stub_symbols ss ON ss.stub_id = s.id
		WHERE s.run_id = ? AND ss.name = ?
		ORDER BY s.stub_path`, runID, symbol)
}

// FindStubsBySymbol returns the stubs of a run that export symbol
func (s *SQLiteStorage) FindStubsBySymbol(ctx context.Context, runID int64, symbol string) ([]*StubRecord, error) {
	return s.findStubsBySymbolWithQuerier(ctx, s.querier(), runID, symbol)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, rootPath string) (*RootStatus, error) {
	status := &RootStatus{RootPath: rootPath}

	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE root_path = ?", rootPath).Scan(&status.RunsCount)
	if err != nil {
		return nil, err
	}

	latest, err := s.getLatestRunWithQuerier(ctx, q, rootPath)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		status.LatestRun = latest
		status.StubsTracked = latest.Total()
	}

	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseMB = float64(pageCount*pageSize) / (1024 * 1024)
	}
	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, rootPath string) (*RootStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), rootPath)
}

// Transaction implementations delegate to the storage helpers with the
// transaction as querier

func (t *sqliteTx) CreateRun(ctx context.Context, run *Run) error {
	return t.storage.createRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) GetRun(ctx context.Context, runID int64) (*Run, error) {
	return t.storage.getRunWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) GetLatestRun(ctx context.Context, rootPath string) (*Run, error) {
	return t.storage.getLatestRunWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) ListRuns(ctx context.Context, rootPath string, limit int) ([]*Run, error) {
	return t.storage.listRunsWithQuerier(ctx, t.querier(), rootPath, limit)
}

func (t *sqliteTx) DeleteRunsBefore(ctx context.Context, rootPath string, before time.Time) (int, error) {
	return t.storage.deleteRunsBeforeWithQuerier(ctx, t.querier(), rootPath, before)
}

func (t *sqliteTx) InsertStub(ctx context.Context, stub *StubRecord) error {
	return t.storage.insertStubWithQuerier(ctx, t.querier(), stub)
}

func (t *sqliteTx) ListStubs(ctx context.Context, runID int64) ([]*StubRecord, error) {
	return t.storage.listStubsWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) FindStubsBySymbol(ctx context.Context, runID int64, symbol string) ([]*StubRecord, error) {
	return t.storage.findStubsBySymbolWithQuerier(ctx, t.querier(), runID, symbol)
}

func (t *sqliteTx) GetStatus(ctx context.Context, rootPath string) (*RootStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) Close() error {
	return errors.New("cannot close database from within a transaction")
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
