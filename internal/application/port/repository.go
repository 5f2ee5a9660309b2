package port

import (
	"context"
	"time"

	"github.com/smart845/QuantumTrader/internal/domain/model"
)

// Board 一次完成的扫描结果（已排序）
type Board struct {
	SessionID string               `json:"session_id"`
	UpdatedAt time.Time            `json:"updated_at"`
	Results   []model.SpreadResult `json:"results"`
}

// BoardStore keeps only the latest board. Every write replaces the previous
// one; no spread history is retained.
type BoardStore interface {
	ReplaceBoard(ctx context.Context, b Board) error
	LatestBoard(ctx context.Context) (*Board, error)
	Close() error
}
