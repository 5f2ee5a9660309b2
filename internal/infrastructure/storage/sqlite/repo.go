package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/model"
)

// Repo keeps the latest board in a single-row table.
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_board (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  session_id TEXT NOT NULL,
  updated_at_ms INTEGER NOT NULL,
  results TEXT NOT NULL
);
`)
	return err
}

func (r *Repo) ReplaceBoard(ctx context.Context, b port.Board) error {
	results, err := json.Marshal(b.Results)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO latest_board(id, session_id, updated_at_ms, results)
		VALUES(1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		session_id=excluded.session_id, updated_at_ms=excluded.updated_at_ms, results=excluded.results
	`, b.SessionID, b.UpdatedAt.UnixMilli(), string(results))
	return err
}

// LatestBoard returns nil, nil when nothing has been stored yet.
func (r *Repo) LatestBoard(ctx context.Context) (*port.Board, error) {
	var (
		sessionID string
		ts        int64
		raw       string
	)
	err := r.db.QueryRowContext(ctx, `SELECT session_id, updated_at_ms, results FROM latest_board WHERE id = 1`).
		Scan(&sessionID, &ts, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var results []model.SpreadResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, fmt.Errorf("decode stored board: %w", err)
	}
	if results == nil {
		results = []model.SpreadResult{}
	}
	return &port.Board{SessionID: sessionID, UpdatedAt: time.UnixMilli(ts), Results: results}, nil
}

var _ port.BoardStore = (*Repo)(nil)
