package queue

import (
	"errors"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying: the runtime fails the job on the
// first occurrence instead of spending the rest of its attempt budget.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent or is an
// undecodable payload.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p) || errors.Is(err, domain.ErrInvalidPayload)
}
