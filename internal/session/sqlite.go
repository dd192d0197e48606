package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	state_json  TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_updated_at ON sessions(updated_at);
`

// SQLiteStore keeps sessions in a SQLite database so they survive restarts.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
	ttl   time.Duration
}

// NewSQLiteStore opens the database at path and creates the schema. Use
// ":memory:" for a throwaway store.
func NewSQLiteStore(path string, ttl time.Duration, clock clockwork.Clock) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SQLiteStore{db: db, clock: clock, ttl: ttl}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, state domain.InputState) (string, error) {
	now := s.clock.Now()
	if err := s.sweep(ctx, now); err != nil {
		return "", err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode session state: %w", err)
	}
	id := newID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state_json, updated_at) VALUES (?, ?, ?)`,
		id, string(data), now.UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.InputState, error) {
	var (
		data      string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json, updated_at FROM sessions WHERE id = ?`, id).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InputState{}, ErrNotFound
	}
	if err != nil {
		return domain.InputState{}, fmt.Errorf("select session: %w", err)
	}

	now := s.clock.Now()
	if s.expired(updatedAt, now) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return domain.InputState{}, fmt.Errorf("delete expired session: %w", err)
		}
		return domain.InputState{}, ErrNotFound
	}

	var state domain.InputState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return domain.InputState{}, fmt.Errorf("decode session state: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, now.UnixNano(), id); err != nil {
		return domain.InputState{}, fmt.Errorf("touch session: %w", err)
	}
	return state, nil
}

func (s *SQLiteStore) Put(ctx context.Context, id string, state domain.InputState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	now := s.clock.Now()
	query := `UPDATE sessions SET state_json = ?, updated_at = ? WHERE id = ?`
	args := []any{string(data), now.UnixNano(), id}
	if s.ttl > 0 {
		query += ` AND updated_at >= ?`
		args = append(args, now.Add(-s.ttl).UnixNano())
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := s.sweep(ctx, s.clock.Now()); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Len counts live sessions.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	if err := s.sweep(ctx, s.clock.Now()); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) expired(updatedAt int64, now time.Time) bool {
	return s.ttl > 0 && now.Sub(time.Unix(0, updatedAt)) > s.ttl
}

func (s *SQLiteStore) sweep(ctx context.Context, now time.Time) error {
	if s.ttl <= 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE updated_at < ?`, now.Add(-s.ttl).UnixNano()); err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}
	return nil
}
