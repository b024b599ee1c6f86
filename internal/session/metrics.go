package session

import "expvar"

var (
	metricTransitionsTotal   = expvar.NewInt("session_transitions_total")
	metricViolationsTotal    = expvar.NewInt("session_phase_violations_total")
	metricUnknownTagsTotal   = expvar.NewInt("session_unknown_tags_total")
	metricGameUpdatesTotal   = expvar.NewInt("session_game_updates_total")
	metricJoinsTotal         = expvar.NewInt("relay_joins_total")
	metricJoinSkippedTotal   = expvar.NewInt("relay_join_skipped_total")
	metricForwardedTotal     = expvar.NewInt("relay_forwarded_total")
	metricDroppedTotal       = expvar.NewInt("relay_dropped_total")
	metricPublishErrorsTotal = expvar.NewInt("relay_publish_errors_total")
)
