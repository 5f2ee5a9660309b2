package port

import "context"

type Sink interface {
	// Board: a new ranked board from a completed scan (possibly empty)
	WriteBoard(ctx context.Context, b Board) error
	// ScanError: a cycle-fatal failure; the previous board stays as is
	WriteError(ctx context.Context, err error) error
}
