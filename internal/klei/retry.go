package klei

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dimspell/lobbywatch/internal/app/logger/logging"
)

// DefaultRetries is the number of retries after the first attempt.
const DefaultRetries = 3

// FailureMode decides what a stage does once a unit has exhausted its retries.
type FailureMode int

const (
	// Lenient logs the failure, records the unit as failed and lets the
	// sibling units continue.
	Lenient FailureMode = iota
	// Strict aborts the whole batch with the first failure.
	Strict
)

func (m FailureMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

func ParseFailureMode(s string) (FailureMode, error) {
	switch strings.ToLower(s) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	}
	return Lenient, fmt.Errorf("unknown failure mode: %q", s)
}

// RetryPolicy wraps one remote call with a fixed retry budget. Retries are
// immediate.
type RetryPolicy struct {
	Retries int
	Mode    FailureMode
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: DefaultRetries, Mode: Lenient}
}

// Do runs operation until it succeeds, fails with a permanent error or the
// budget of Retries+1 attempts is spent. It returns the number of attempts
// made and the last error.
func (p RetryPolicy) Do(ctx context.Context, unit string, operation func() error) (attempts int, err error) {
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(retries)), ctx)

	err = backoff.RetryNotify(
		func() error {
			attempts++
			err := operation()
			if err == nil {
				return nil
			}
			if ctx.Err() != nil || !isTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		policy,
		func(err error, _ time.Duration) {
			slog.Debug("Retrying request",
				"unit", unit,
				"attempt", attempts,
				logging.Error(err))
		},
	)
	return attempts, err
}

// isTransient reports whether a failed call is worth repeating. Transport
// errors and non-2xx responses are; malformed envelopes and cancellation are
// not.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var envErr *EnvelopeError
	if errors.As(err, &envErr) {
		return false
	}
	var reqErr *RequestError
	return !errors.As(err, &reqErr)
}
