package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_board (
  id SMALLINT PRIMARY KEY CHECK (id = 1),
  session_id TEXT NOT NULL,
  updated_at_ms BIGINT NOT NULL,
  results JSONB NOT NULL
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
		VALUES(1, $1, $2, $3)
		ON CONFLICT(id) DO UPDATE SET
		session_id=EXCLUDED.session_id, updated_at_ms=EXCLUDED.updated_at_ms, results=EXCLUDED.results
	`, b.SessionID, b.UpdatedAt.UnixMilli(), string(results))
	return err
}

func (r *Repo) LatestBoard(ctx context.Context) (*port.Board, error) {
	var (
		sessionID string
		ts        int64
		raw       []byte
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
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("decode stored board: %w", err)
	}
	if results == nil {
		results = []model.SpreadResult{}
	}
	return &port.Board{SessionID: sessionID, UpdatedAt: time.UnixMilli(ts), Results: results}, nil
}

var _ port.BoardStore = (*Repo)(nil)
