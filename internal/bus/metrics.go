package bus

import "expvar"

var (
	metricPublishedTotal     = expvar.NewInt("bus_published_total")
	metricPublishErrorsTotal = expvar.NewInt("bus_publish_errors_total")
	metricReceivedTotal      = expvar.NewInt("bus_received_total")
	metricDecodeErrorsTotal  = expvar.NewInt("bus_decode_errors_total")
	metricHandlerPanicsTotal = expvar.NewInt("bus_handler_panics_total")
)
