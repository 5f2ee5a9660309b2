package scanner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is one scan cycle. Only the scheduler cancels it; pipeline stages
// read the flag at their suspension points.
type Session struct {
	ID        string
	StartedAt time.Time

	cancelled atomic.Bool
	once      sync.Once
	done      chan struct{}
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		done:      make(chan struct{}),
	}
}

// Cancel flips the flag. In-flight requests are left to finish; their
// results are dropped at the next check.
func (s *Session) Cancel() {
	s.once.Do(func() {
		s.cancelled.Store(true)
		close(s.done)
	})
}

func (s *Session) Cancelled() bool { return s.cancelled.Load() }

// Done is closed on Cancel so waits between batches can end early.
func (s *Session) Done() <-chan struct{} { return s.done }
