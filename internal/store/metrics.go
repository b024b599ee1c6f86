package store

import "expvar"

var (
	metricRecordsWrittenTotal = expvar.NewInt("store_records_written_total")
	metricRecordsFailedTotal  = expvar.NewInt("store_records_failed_total")
	metricRecordRetryTotal    = expvar.NewInt("store_record_retry_total")
	metricRecordsDroppedTotal = expvar.NewInt("store_records_dropped_total")
	metricRecordQueueLen      = expvar.NewInt("store_record_queue_len")
)
