package agent

import "expvar"

var (
	metricTasksTotal           = expvar.NewInt("agent_tasks_total")
	metricTaskPanicsTotal      = expvar.NewInt("agent_task_panics_total")
	metricTimersScheduledTotal = expvar.NewInt("agent_timers_scheduled_total")
	metricArchiveErrorsTotal   = expvar.NewInt("agent_archive_errors_total")
)
