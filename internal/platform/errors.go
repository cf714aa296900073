package platform

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound means the platform answered but had nothing usable: a non-2xx
// status, an empty list, a malformed body or a missing field. A rejected
// credential on the batch endpoint also lands here; the protocol gives no
// separate signal for it.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer from an endpoint. It matches ErrNotFound.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.Code)
}

func (e *StatusError) Is(target error) bool { return target == ErrNotFound }

// TransportError is a failure to get any answer at all: DNS, connect, reset,
// timeout or cancellation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Outcome classifies a lookup result for logs, metrics and the ledger.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeTransport Outcome = "transport_error"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeOther     Outcome = "error"
)

// Classify maps an error returned by this package (or wrapping one) to an
// Outcome. nil is OutcomeOK.
func Classify(err error) Outcome {
	var te *TransportError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.As(err, &te):
		return OutcomeTransport
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeOther
	}
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}
