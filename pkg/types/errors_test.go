package types

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorClassification(t *testing.T) {
	transient := &TransientNetworkError{Op: "fetch-book", Err: errors.New("timeout")}
	rateLimit := &RateLimitError{Venue: VenuePredict, RetryAfter: time.Second}
	auth := &AuthError{Venue: VenuePredict, Reason: "401"}
	data := &DataError{Venue: VenuePolymarket, Reason: "missing asks"}
	invariant := &InvariantError{TokenID: "tok", Reason: "crossed"}

	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"transient direct", transient, IsTransient, true},
		{"transient wrapped", fmt.Errorf("scan: %w", transient), IsTransient, true},
		{"rate limit", rateLimit, IsRateLimit, true},
		{"rate limit wrapped", fmt.Errorf("submit: %w", rateLimit), IsRateLimit, true},
		{"auth", auth, IsAuth, true},
		{"data", data, IsData, true},
		{"invariant", invariant, IsInvariant, true},
		{"plain error is not transient", errors.New("nope"), IsTransient, false},
		{"auth is not rate limit", auth, IsRateLimit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("classification = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransientUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &TransientNetworkError{Op: "ws-read", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("TransientNetworkError should unwrap to its cause")
	}
}

func TestOrderErrorMessage(t *testing.T) {
	withID := &OrderError{Venue: VenuePredict, Code: "REJECTED", Message: "bad tick", OrderID: "0xabc"}
	if withID.Error() == "" || withID.Error() == (&OrderError{}).Error() {
		t.Error("OrderError with ID should render a distinct message")
	}

	withoutID := &OrderError{Venue: VenuePredict, Code: "REJECTED", Message: "bad tick"}
	if withoutID.Error() == withID.Error() {
		t.Error("OrderError without ID should omit the order id")
	}
}
