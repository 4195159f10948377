package types

import (
	"errors"
	"fmt"
	"time"
)

// ConfigError is a missing or invalid configuration value. Fatal at startup.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// AuthError is a credential rejection (401, bad signer). Fatal at startup
// when trading is enabled, a warning otherwise.
type AuthError struct {
	Venue  Venue
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth: %s", e.Venue, e.Reason)
}

// TransientNetworkError covers timeouts, 5xx responses, and dropped sockets.
// Callers retry: feeds reconnect, idempotent HTTP gets one retry, and the
// monitor counts it toward the circuit breaker.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// RateLimitError is a 429. The caller backs off; the executor skips a cycle.
type RateLimitError struct {
	Venue      Venue
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Venue, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Venue)
}

// DataError is a malformed or unnormalizable payload. The datum is dropped,
// never retried.
type DataError struct {
	Venue  Venue
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s data: %s", e.Venue, e.Reason)
}

// InvariantError marks a book that violates its structural invariants. The
// book is rejected for the cycle and no quotes are placed against it.
type InvariantError struct {
	TokenID string
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("book %s: %s", e.TokenID, e.Reason)
}

// OrderError is a venue rejection of an order. The executor records the leg
// as failed; there is no retry at the submitter layer.
type OrderError struct {
	Venue   Venue
	Code    string
	Message string
	OrderID string
}

func (e *OrderError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%s order %s rejected: %s (%s)", e.Venue, e.OrderID, e.Message, e.Code)
	}
	return fmt.Sprintf("%s order rejected: %s (%s)", e.Venue, e.Message, e.Code)
}

// ErrShutdown propagates through loops when the process is stopping.
var ErrShutdown = errors.New("shutting down")

// IsTransient reports whether err should be retried by the caller.
func IsTransient(err error) bool {
	var te *TransientNetworkError
	return errors.As(err, &te)
}

// IsRateLimit reports whether err is a venue rate limit.
func IsRateLimit(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// IsAuth reports whether err is a credential rejection.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsData reports whether err is an unnormalizable payload.
func IsData(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsInvariant reports whether err is a book invariant violation.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
