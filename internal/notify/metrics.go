package notify

import "expvar"

var metricListenerPanics = expvar.NewInt("notify_listener_panics_total")
