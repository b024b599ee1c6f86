package bus

import (
	"encoding/json"

	"cortex/internal/protocol"

	"github.com/rs/zerolog/log"
)

// Handler receives the payload of one message. The client only calls it with
// well-formed JSON.
type Handler func(payload json.RawMessage)

// Decode adapts a typed callback. Payloads that do not decode into T are
// logged and dropped.
func Decode[T any](channel protocol.Channel, fn func(T)) Handler {
	return func(payload json.RawMessage) {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			metricDecodeErrorsTotal.Add(1)
			log.Warn().Err(err).Str("channel", string(channel)).RawJSON("payload", payload).Msg("drop undecodable message")
			return
		}
		fn(v)
	}
}
