package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the execution history in a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL and a busy timeout keep the file usable when several sessions
	// write their history concurrently.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		circuit_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		shots INTEGER NOT NULL,
		method TEXT,
		counts TEXT,
		time_taken REAL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_executions_created_at ON executions(created_at);
	CREATE INDEX IF NOT EXISTS idx_executions_worker ON executions(worker_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) SaveExecution(rec *ExecutionRecord) error {
	counts, err := json.Marshal(rec.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO executions
		(id, circuit_id, worker_id, shots, method, counts, time_taken, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.CircuitID, rec.WorkerID, rec.Shots, rec.Method, string(counts), rec.TimeTaken, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetExecution(id string) (*ExecutionRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, circuit_id, worker_id, shots, method, counts, time_taken, created_at
		FROM executions WHERE id = ?
	`, id)

	rec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) ListExecutions(limit int) ([]*ExecutionRecord, error) {
	query := `
		SELECT id, circuit_id, worker_id, shots, method, counts, time_taken, created_at
		FROM executions ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	out := []*ExecutionRecord{}
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExecution(row scanner) (*ExecutionRecord, error) {
	var rec ExecutionRecord
	var counts string
	if err := row.Scan(&rec.ID, &rec.CircuitID, &rec.WorkerID, &rec.Shots, &rec.Method, &counts, &rec.TimeTaken, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if counts != "" {
		if err := json.Unmarshal([]byte(counts), &rec.Counts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal counts for %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}
