package loader

import (
	"errors"
	"fmt"
)

// Code identifies why a job reached a terminal FAILED status, or why a
// Schedule call was rejected.
type Code int

const (
	// CodeScheduleFailed is returned by Schedule when the submitted batch
	// contains a dependency cycle. No job of the batch is admitted.
	CodeScheduleFailed Code = iota + 1

	// CodeFailed means the job's own function returned an error or panicked.
	CodeFailed

	// CodeCanceled means the job was still pending when its owning Task was
	// removed.
	CodeCanceled

	// CodeDependencyFailed means some transitive dependency of the job ended
	// in a non-success status.
	CodeDependencyFailed
)

func (c Code) String() string {
	switch c {
	case CodeScheduleFailed:
		return "SCHEDULE_FAILED"
	case CodeFailed:
		return "FAILED"
	case CodeCanceled:
		return "CANCELED"
	case CodeDependencyFailed:
		return "DEPENDENCY_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Error is the failure record carried by a failed job and returned from
// Wait and Schedule. It is an integer code plus a human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// CodeOf extracts the loader error code from err. It returns 0 when err is
// nil or does not wrap a loader *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func newErrorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// asJobFailure normalizes what a job function produced into the job's
// failure record. A *Error keeps its code, so user code can terminate a job
// with a specific cause; anything else becomes CodeFailed.
func asJobFailure(j *Job, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newErrorf(CodeFailed, "load job %q failed: %v", j.name, err)
}
