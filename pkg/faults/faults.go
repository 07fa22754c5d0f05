// Package faults classifies pipeline errors into the kinds the CLI maps to
// exit codes, and marks which failures are worth retrying.
//
// Stages wrap their errors with E at the boundary where the kind is known;
// everything above inspects kinds through errors.As, so wrapping with
// fmt.Errorf("%w") along the way never loses the classification.
package faults

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the failure class of a pipeline error.
type Kind int

const (
	// KindInput marks unusable input: malformed subtitles, binary data,
	// unknown flags values.
	KindInput Kind = iota + 1

	// KindResource marks resource exhaustion, primarily memory pressure
	// in the governor.
	KindResource

	// KindValidation marks a plan rejected by the validators.
	KindValidation

	// KindIntegrity marks tampered or missing snapshot content.
	KindIntegrity

	// KindInternal marks bugs and unclassified failures.
	KindInternal
)

// String returns the kind's wire name, used in CLI failure reports.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindResource:
		return "resource"
	case KindValidation:
		return "validation"
	case KindIntegrity:
		return "integrity"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Exit codes for the CLI, derived from the error kind.
const (
	ExitOK         = 0
	ExitValidation = 1
	ExitInput      = 2
	ExitResource   = 3
	ExitInternal   = 4
)

// Fault attaches a Kind and an optional retriable marker to an error.
type Fault struct {
	kind      Kind
	msg       string
	err       error
	retriable bool
}

// E wraps err with a kind and message. err may be nil when the fault is the
// root cause.
func E(kind Kind, msg string, err error) *Fault {
	return &Fault{kind: kind, msg: msg, err: err}
}

// Retriable marks the fault as transient: the coordinator may retry the
// operation with backoff.
func (f *Fault) Retriable() *Fault {
	f.retriable = true

	return f
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.err == nil {
		return fmt.Sprintf("%s: %s", f.kind, f.msg)
	}

	return fmt.Sprintf("%s: %s: %v", f.kind, f.msg, f.err)
}

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (f *Fault) Unwrap() error {
	return f.err
}

// Kind returns the fault's classification.
func (f *Fault) Kind() Kind {
	return f.kind
}

// KindOf walks the error chain for the outermost Fault and returns its kind.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.kind
	}

	return KindInternal
}

// IsRetriable reports whether any fault in the chain is marked retriable.
// Only resource-pressure faults are; input, validation, integrity, and
// internal failures never clear up on their own.
func IsRetriable(err error) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.retriable
	}

	return false
}

// IsCanceled reports whether the error chain ends in caller cancellation.
// The CLI exits without a failure report in that case.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// ExitCode maps an error to the CLI exit code. Cancellation is not a
// failure: callers check IsCanceled before reporting.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExitInternal
	}

	switch KindOf(err) {
	case KindValidation, KindIntegrity:
		return ExitValidation
	case KindInput:
		return ExitInput
	case KindResource:
		return ExitResource
	default:
		return ExitInternal
	}
}
