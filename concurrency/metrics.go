package concurrency

import (
	"net/http"
	"time"
)

// RecordResponse adds the outcome of one call to the metrics.
func (ch *ConcurrencyHandler) RecordResponse(statusCode int, responseTime time.Duration) {
	m := ch.Metrics
	m.Lock.Lock()
	defer m.Lock.Unlock()

	if statusCode < 200 || statusCode >= 300 {
		m.TotalFaults++
	}
	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable {
		m.TotalThrottled++
	}
	m.ResponseTime.Total += responseTime
	m.ResponseTime.Count++
	m.ResponseTime.Average = m.ResponseTime.Total / time.Duration(m.ResponseTime.Count)
}

// Snapshot is a copy of the metrics safe to read without locking.
type Snapshot struct {
	TotalRequests       int64
	TotalFaults         int64
	TotalThrottled      int64
	PermitWaitTime      time.Duration
	AverageResponseTime time.Duration
}

// Snapshot returns a consistent copy of the metrics.
func (ch *ConcurrencyHandler) Snapshot() Snapshot {
	m := ch.Metrics
	m.Lock.Lock()
	defer m.Lock.Unlock()
	return Snapshot{
		TotalRequests:       m.TotalRequests,
		TotalFaults:         m.TotalFaults,
		TotalThrottled:      m.TotalThrottled,
		PermitWaitTime:      m.PermitWaitTime,
		AverageResponseTime: m.ResponseTime.Average,
	}
}
