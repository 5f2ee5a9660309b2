package scanner

import (
	"errors"
	"fmt"
)

// ErrCancelledScan 会话已被新的扫描取代；属于正常控制流，不上报 onError
var ErrCancelledScan = errors.New("scan cancelled")

// ErrEmptyUniverse is wrapped in a UniverseFetchError when the provider
// answers successfully with no instruments.
var ErrEmptyUniverse = errors.New("empty universe")

// UniverseFetchError is fatal for the current cycle.
type UniverseFetchError struct {
	Err error
}

func (e *UniverseFetchError) Error() string {
	return fmt.Sprintf("universe fetch failed: %v", e.Err)
}

func (e *UniverseFetchError) Unwrap() error { return e.Err }
