package metrics

import "time"

// ObserveAskOutcome counts a question that reached a terminal state
// ("executed", "retry_executed", "retry_failed", "answer_only", "rejected").
func ObserveAskOutcome(outcome string) {
	askOutcomesTotal.WithLabelValues(outcome).Inc()
}

// IncSQLRetry counts one retry turn.
func IncSQLRetry() {
	sqlRetriesTotal.Inc()
}

// ObserveModelCall records one model invocation. errType is empty on success.
func ObserveModelCall(elapsed time.Duration, errType string) {
	modelLatencySeconds.Observe(elapsed.Seconds())
	if errType != "" {
		modelErrorsTotal.WithLabelValues(errType).Inc()
	}
}

// ObserveSQLExecution records one execution of generated SQL.
func ObserveSQLExecution(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sqlLatencySeconds.WithLabelValues(result).Observe(elapsed.Seconds())
}
