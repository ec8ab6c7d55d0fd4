package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Call outcome classes. Every *CallError matches exactly one of them.
var (
	// ErrCircuitOpen is returned when the breaker rejects a call without attempting it.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTimeout marks a call that ran out of time.
	ErrTimeout = errors.New("external service timeout")

	// ErrUnavailable marks transport failures, 5xx answers, rate limiting and open breakers.
	ErrUnavailable = errors.New("external service unavailable")

	// ErrRejected marks 4xx answers and undecodable bodies.
	ErrRejected = errors.New("external service rejected the request")
)

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

// CallError is a classified failure of one provider operation.
type CallError struct {
	Provider  string
	Operation string
	Class     error
	Err       error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Is matches the outcome class as well as the wrapped cause.
func (e *CallError) Is(target error) bool {
	return target == e.Class
}

// Classify wraps err into a *CallError for provider and operation. A nil
// error stays nil.
func Classify(provider, operation string, err error) error {
	if err == nil {
		return nil
	}
	var existing *CallError
	if errors.As(err, &existing) {
		return err
	}
	return &CallError{Provider: provider, Operation: operation, Class: classOf(err), Err: err}
}

func classOf(err error) error {
	if IsTimeout(err) {
		return ErrTimeout
	}
	if errors.Is(err, ErrCircuitOpen) {
		return ErrUnavailable
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests {
			return ErrUnavailable
		}
		return ErrRejected
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrUnavailable
	}
	if errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}
	return ErrRejected
}

// IsTimeout reports whether err was caused by a deadline or a network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
