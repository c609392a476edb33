package repository

import (
	"fmt"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// now is UTC with microsecond precision so values round-trip through both
// backends unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

type conflictError struct {
	err error
}

func (e *conflictError) Error() string {
	return fmt.Sprintf("conflict: %v", e.err)
}

func (e *conflictError) Unwrap() error { return e.err }

func (e *conflictError) Is(target error) bool { return target == domain.ErrConflict }
