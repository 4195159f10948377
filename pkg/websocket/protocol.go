// Package websocket provides a venue-neutral WebSocket connection with
// automatic reconnection, subscription replay, and staleness detection.
// Venue-specific wire formats are supplied through the Protocol interface;
// decoded frames are delivered raw and parsed by the owning feed.
package websocket

import "time"

// Protocol supplies the venue-specific wire payloads. Implementations live
// next to the venue clients and must be safe for concurrent use.
type Protocol interface {
	// SubscribePayload builds the message that subscribes the given topics.
	// initial is true on the first subscription of a connection and after a
	// reconnect; some venues use a different shape for incremental adds.
	// Returning ok=false skips the write (venue subscribes via URL or auth).
	SubscribePayload(topics []string, initial bool) (interface{}, bool)

	// UnsubscribePayload builds the message that removes the given topics.
	// Returning ok=false means the venue has no unsubscribe support and the
	// feed simply ignores frames for dropped topics.
	UnsubscribePayload(topics []string) (interface{}, bool)

	// HeartbeatPayload builds the application-level keepalive message, for
	// venues that expect one in addition to protocol pings. Returning
	// ok=false disables the application heartbeat.
	HeartbeatPayload() (interface{}, bool)
}

// Status is a point-in-time snapshot of connection health.
type Status struct {
	Connected   bool
	LastFrameAt time.Time
	Subscribed  int
	Reconnects  uint64
}

// Healthy reports whether the connection is up and has delivered a frame
// within maxAge. maxAge <= 0 only checks connectedness.
func (s Status) Healthy(maxAge time.Duration) bool {
	if !s.Connected {
		return false
	}
	if maxAge <= 0 {
		return true
	}
	return time.Since(s.LastFrameAt) <= maxAge
}
