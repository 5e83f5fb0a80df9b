package handlers

import "sync/atomic"

var (
	metricRequestsTotal   uint64
	metricRequestsFailed  uint64
	metricRequestLatencyN uint64
	metricSessionsStarted uint64
	metricSessionsStopped uint64
	metricSessionFailures uint64
	metricNavigationDrift uint64
)

func recordRequest(ms uint64, status int) {
	atomic.AddUint64(&metricRequestsTotal, 1)
	atomic.AddUint64(&metricRequestLatencyN, ms)
	if status >= 400 {
		atomic.AddUint64(&metricRequestsFailed, 1)
	}
}

func recordSessionStarted() {
	atomic.AddUint64(&metricSessionsStarted, 1)
}

func recordSessionStopped(resultErrors int) {
	atomic.AddUint64(&metricSessionsStopped, 1)
	if resultErrors > 0 {
		atomic.AddUint64(&metricNavigationDrift, 1)
	}
}

func recordSessionFailure() {
	atomic.AddUint64(&metricSessionFailures, 1)
}

func snapshotMetrics() map[string]any {
	total := atomic.LoadUint64(&metricRequestsTotal)
	failed := atomic.LoadUint64(&metricRequestsFailed)
	latencySum := atomic.LoadUint64(&metricRequestLatencyN)
	avgMs := 0.0
	if total > 0 {
		avgMs = float64(latencySum) / float64(total)
	}
	return map[string]any{
		"requestsTotal":   total,
		"requestsFailed":  failed,
		"avgLatencyMs":    avgMs,
		"sessionsStarted": atomic.LoadUint64(&metricSessionsStarted),
		"sessionsStopped": atomic.LoadUint64(&metricSessionsStopped),
		"sessionFailures": atomic.LoadUint64(&metricSessionFailures),
		"navigationDrift": atomic.LoadUint64(&metricNavigationDrift),
	}
}
