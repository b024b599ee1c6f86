package bus

import "time"

// Status mirrors the connection lifecycle reported by the bus client.
// Consumers must treat a repeated status as a no-op.
type Status string

const (
	StatusConnect      Status = "connect"
	StatusReady        Status = "ready"
	StatusReconnecting Status = "reconnecting"
	StatusEnd          Status = "end"
	StatusError        Status = "error"
)

type StatusEvent struct {
	Status Status
	Err    error
	At     time.Time
}
