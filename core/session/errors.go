package session

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

var (
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")
	// ErrStale is returned when a newer request for the same slot was issued while this one was in flight.
	// The response is discarded.
	ErrStale = errors.New("stale response discarded")

	errNoStudent      = errors.New("select a student first")
	errNoCourse       = errors.New("select a course first")
	errNoSemester     = errors.New("enter a semester")
	errNoSelection    = errors.New("select a student or a course first")
	errNoStudentNo    = errors.New("enter a student number")
	errNoCourseNo     = errors.New("enter a course number")
	errNoScore        = errors.New("enter a score")
	errScoreRange     = errors.New("score must be a number between 0 and 100")
	errInvalidDropKey = errors.New("student id, course id and semester are required")

	transportMessage = "could not reach the server, please retry"
)

// ServerError is a request the server answered with a non-success code.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (code %d)", e.Code)
	}
	return e.Message
}

// TransportError is a request that got no usable answer: network failure, timeout or unreadable body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the underlying failure. There must be no Cause method: errors.Cause has to stop here.
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err means the backend gave no usable answer.
// That is a *TransportError from a remote backend, or any failure an in-process backend returns
// other than a rejection: a non-success envelope, a missing record, a conflict or invalid input.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	cause := errors.Cause(err)
	switch cause.(type) {
	case *TransportError:
		return true
	case *ServerError, *core.ValidationError, validator.ValidationErrors:
		return false
	}
	switch cause {
	case ErrCancelled, ErrStale:
		return false
	}
	return !grade.IsNotFound(cause) && !grade.IsConflict(cause)
}

// AsServerError returns the *ServerError err was caused by, if any.
func AsServerError(err error) (*ServerError, bool) {
	srvErr, ok := errors.Cause(err).(*ServerError)
	return srvErr, ok
}

// Message turns err into text fit for the user.
// Server messages are surfaced verbatim, transport failures generically.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTransport(err):
		return transportMessage
	}
	if srvErr, ok := AsServerError(err); ok {
		return srvErr.Error()
	}
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		return vErr.Error()
	}
	return err.Error()
}

func validationError(field string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}
