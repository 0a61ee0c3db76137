// concurrency/handler.go
package concurrency

import (
	"sync"
	"time"

	"github.com/deploymenttheory/go-api-soap-client/logger"
)

// ConcurrencyHandler caps the number of calls a channel factory has in flight at the same time.
type ConcurrencyHandler struct {
	sem     chan struct{}
	logger  logger.Logger
	Metrics *ConcurrencyMetrics
}

// ConcurrencyMetrics captures the calls that went through a ConcurrencyHandler.
type ConcurrencyMetrics struct {
	TotalRequests  int64         // Total number of calls that acquired a permit
	TotalFaults    int64         // Total number of calls answered with a non-2xx status
	TotalThrottled int64         // Total number of calls answered with 429 or 503
	PermitWaitTime time.Duration // Total time spent waiting for permits
	ResponseTime   struct {
		Total   time.Duration // Total response time for all recorded calls
		Average time.Duration // Average response time across all recorded calls
		Count   int64         // Count of recorded calls
	}
	Lock sync.Mutex // Lock for all metrics fields
}

// NewConcurrencyHandler initializes a new ConcurrencyHandler allowing limit calls at a time.
// It uses a semaphore to control concurrency.
func NewConcurrencyHandler(limit int, log logger.Logger, metrics *ConcurrencyMetrics) *ConcurrencyHandler {
	if limit < 1 {
		limit = 1
	}
	if metrics == nil {
		metrics = &ConcurrencyMetrics{}
	}
	return &ConcurrencyHandler{
		sem:     make(chan struct{}, limit),
		logger:  logger.OrNop(log),
		Metrics: metrics,
	}
}

// Limit returns the number of calls allowed in flight.
func (ch *ConcurrencyHandler) Limit() int {
	return cap(ch.sem)
}

// InFlight returns the number of permits currently held.
func (ch *ConcurrencyHandler) InFlight() int {
	return len(ch.sem)
}

// RequestIDKey is the context key under which AcquireConcurrencyToken stores the request id of a permit.
type RequestIDKey struct{}
