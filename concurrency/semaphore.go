// concurrency/semaphore.go
/* Package concurrency provides the permit semaphore that bounds the calls a channel factory sends at the
same time, together with the metrics gathered while doing so. */
package concurrency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AcquireConcurrencyToken blocks until a permit is free or ctx ends.
//
// Returns:
//   - context.Context: ctx carrying the request id under RequestIDKey.
//   - uuid.UUID: the request id to pass to ReleaseConcurrencyToken.
//   - error: ctx.Err() when no permit could be acquired.
//
// Example:
//
//	ctx, requestID, err := handler.AcquireConcurrencyToken(ctx)
//	if err != nil {
//	    return err
//	}
//	defer handler.ReleaseConcurrencyToken(requestID)
func (ch *ConcurrencyHandler) AcquireConcurrencyToken(ctx context.Context) (context.Context, uuid.UUID, error) {
	log := ch.logger
	tokenAcquisitionStart := time.Now()
	requestID := uuid.New()

	select {
	case ch.sem <- struct{}{}:
		tokenAcquisitionDuration := time.Since(tokenAcquisitionStart)
		ch.Metrics.Lock.Lock()
		ch.Metrics.PermitWaitTime += tokenAcquisitionDuration
		ch.Metrics.TotalRequests++
		ch.Metrics.Lock.Unlock()

		utilizedTokens := len(ch.sem)
		availableTokens := cap(ch.sem) - utilizedTokens
		log.Debug("Acquired concurrency token", zap.String("RequestID", requestID.String()), zap.Duration("AcquisitionTime", tokenAcquisitionDuration), zap.Int("UtilizedTokens", utilizedTokens), zap.Int("AvailableTokens", availableTokens))

		return context.WithValue(ctx, RequestIDKey{}, requestID), requestID, nil

	case <-ctx.Done():
		log.Warn("Failed to acquire concurrency token", zap.Error(ctx.Err()))
		return ctx, requestID, ctx.Err()
	}
}

// ReleaseConcurrencyToken returns a permit to the pool.
func (ch *ConcurrencyHandler) ReleaseConcurrencyToken(requestID uuid.UUID) {
	<-ch.sem

	utilizedTokens := len(ch.sem)
	availableTokens := cap(ch.sem) - utilizedTokens
	ch.logger.Debug("Released concurrency token",
		zap.String("RequestID", requestID.String()),
		zap.Int("UtilizedTokens", utilizedTokens),
		zap.Int("AvailableTokens", availableTokens),
	)
}
