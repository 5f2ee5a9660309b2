package composite

import (
	"context"
	"errors"
	"testing"

	"github.com/smart845/QuantumTrader/internal/application/port"
)

type memStore struct {
	board    *port.Board
	writeErr error
	readErr  error
	writes   int
	closed   bool
}

func (m *memStore) ReplaceBoard(ctx context.Context, b port.Board) error {
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.board = &b
	return nil
}

func (m *memStore) LatestBoard(ctx context.Context) (*port.Board, error) {
	return m.board, m.readErr
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func TestReplaceBoardWritesAll(t *testing.T) {
	failing := &memStore{writeErr: errors.New("redis down")}
	ok := &memStore{}
	r := New(failing, nil, ok)

	err := r.ReplaceBoard(context.Background(), port.Board{SessionID: "s1"})
	if err == nil || err.Error() != "redis down" {
		t.Errorf("expected first error, got %v", err)
	}
	if failing.writes != 1 || ok.writes != 1 {
		t.Error("every store must be written despite failures")
	}
	if r.Len() != 2 {
		t.Errorf("nil store must be filtered, got %d", r.Len())
	}
}

func TestLatestBoardFirstAvailable(t *testing.T) {
	empty := &memStore{}
	broken := &memStore{readErr: errors.New("timeout")}
	full := &memStore{board: &port.Board{SessionID: "kept"}}

	b, err := New(empty, broken, full).LatestBoard(context.Background())
	if err != nil || b == nil || b.SessionID != "kept" {
		t.Fatalf("expected kept board, got %+v err=%v", b, err)
	}

	b, err = New(empty, broken).LatestBoard(context.Background())
	if b != nil || err == nil {
		t.Errorf("expected read error when nothing found, got %+v err=%v", b, err)
	}
}

func TestCloseAll(t *testing.T) {
	a, b := &memStore{}, &memStore{}
	if err := New(a, b).Close(); err != nil {
		t.Fatal(err)
	}
	if !a.closed || !b.closed {
		t.Error("all stores must be closed")
	}
}
