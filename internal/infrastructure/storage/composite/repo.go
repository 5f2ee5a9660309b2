package composite

import (
	"context"
	"errors"

	"github.com/smart845/QuantumTrader/internal/application/port"
)

// Repo writes every board to all stores and reads from the first that has one.
type Repo struct {
	repos []port.BoardStore
}

func New(repos ...port.BoardStore) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.BoardStore, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) ReplaceBoard(ctx context.Context, b port.Board) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.ReplaceBoard(ctx, b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) LatestBoard(ctx context.Context) (*port.Board, error) {
	var firstErr error
	for _, repo := range r.repos {
		b, err := repo.LatestBoard(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if b != nil {
			return b, nil
		}
	}
	return nil, firstErr
}

func (r *Repo) Close() error {
	var errs []error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ port.BoardStore = (*Repo)(nil)
