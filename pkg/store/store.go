package store

import (
	"errors"
	"time"
)

// ExecutionRecord is one completed run kept in the local execution history
type ExecutionRecord struct {
	ID        string         `json:"id"`
	CircuitID string         `json:"circuit_id"`
	WorkerID  string         `json:"worker_id"`
	Shots     int            `json:"shots"`
	Method    string         `json:"method"`
	Counts    map[string]int `json:"counts"`
	TimeTaken float64        `json:"time_taken"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists the local execution history
type Store interface {
	SaveExecution(rec *ExecutionRecord) error
	GetExecution(id string) (*ExecutionRecord, error)
	// ListExecutions returns records newest first; limit <= 0 returns all
	ListExecutions(limit int) ([]*ExecutionRecord, error)
	Close() error
}

// Config selects the store backend
type Config struct {
	Type string // "sqlite" or "memory"
	Path string // database file for sqlite
}

var (
	ErrNotFound           = errors.New("execution record not found")
	ErrUnsupportedBackend = errors.New("unsupported store backend")
)

// NewStore creates a store based on configuration. SQLite is the default.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = "executions.db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, ErrUnsupportedBackend
	}
}
