package statusapi

import "expvar"

var (
	metricErrorsTotal       = expvar.NewInt("statusapi_errors_total")
	metricGameRequestsTotal = expvar.NewInt("statusapi_game_requests_total")
	metricStreamsActive     = expvar.NewInt("statusapi_streams_active")
)
