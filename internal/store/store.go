// Package store implements the gate storage interfaces on SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

// SQLiteStore is the single durable store behind every read and write path.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var (
	_ gate.CodeStore     = (*SQLiteStore)(nil)
	_ gate.LockStore     = (*SQLiteStore)(nil)
	_ gate.ConfigStore   = (*SQLiteStore)(nil)
	_ gate.OrderStore    = (*SQLiteStore)(nil)
	_ gate.ProgressStore = (*SQLiteStore)(nil)
)

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn in a transaction, committing when fn returns nil.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMillis(ms.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeHints(hints []string) (string, error) {
	if hints == nil {
		hints = []string{}
	}
	data, err := json.Marshal(hints)
	if err != nil {
		return "", fmt.Errorf("encoding hints: %w", err)
	}
	return string(data), nil
}

func decodeHints(raw string) ([]string, error) {
	var hints []string
	if err := json.Unmarshal([]byte(raw), &hints); err != nil {
		return nil, fmt.Errorf("decoding hints: %w", err)
	}
	if hints == nil {
		hints = []string{}
	}
	return hints, nil
}

// isUniqueViolation matches the constraint message shared by the modernc
// and libSQL drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.ErrNotFound
	}
	return err
}
