package bus

import "errors"

var (
	ErrNotConnected = errors.New("bus_not_connected")
	ErrNoKeyspace   = errors.New("bus_keyspace_not_set")
)
