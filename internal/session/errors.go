package session

import "errors"

var ErrInvalidGameCount = errors.New("invalid_game_count")
