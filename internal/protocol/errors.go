package protocol

import "errors"

var (
	ErrEmptyState      = errors.New("empty_state_message")
	ErrAmbiguousState  = errors.New("ambiguous_state_message")
	ErrMissingReplayID = errors.New("missing_replay_id")
)
