package observe

import "expvar"

var (
	metricEventsTotal        = expvar.NewInt("observe_events_total")
	metricEventsDroppedTotal = expvar.NewInt("observe_events_dropped_total")
)
