package serve

import (
	"errors"
	"fmt"
)

// ErrServerStart is matched by every *StartError
var ErrServerStart = errors.New("content server failed to start")

// StartError reports why Start could not bring the server up
type StartError struct {
	Addr string
	Err  error
}

func (e *StartError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("content server: %v", e.Err)
	}
	return fmt.Sprintf("content server on %s: %v", e.Addr, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrServerStart) hold for any StartError
func (e *StartError) Is(target error) bool {
	return target == ErrServerStart
}
