// apiclient/authenticator.go
package apiclient

import (
	"context"
	"time"

	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/soap"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource hands out access tokens. *authenticationhandler.AuthTokenProvider is the production
// implementation.
type TokenSource interface {
	AcquireToken(ctx context.Context) (string, error)
	FetchTimeout() time.Duration
}

// RequestAuthenticator is the soap.Interceptor that stamps identity headers on every outgoing request.
//
// A failed or timed out token acquisition does not abort the call: the request goes out without an
// AuthenticationToken header and the service's authorization fault reaches the caller through the
// ordinary fault path.
type RequestAuthenticator struct {
	template Identity
	tokens   TokenSource
	Logger   logger.Logger
}

var _ soap.Interceptor = (*RequestAuthenticator)(nil)

// NewRequestAuthenticator creates an authenticator stamping template plus a token from tokens.
func NewRequestAuthenticator(template Identity, tokens TokenSource, log logger.Logger) *RequestAuthenticator {
	return &RequestAuthenticator{
		template: template,
		tokens:   tokens,
		Logger:   logger.OrNop(log).Named("RequestAuthenticator"),
	}
}

// BeforeSend resolves a token bounded by the source's fetch timeout and stamps the identity headers.
// It returns a correlation id linking the request to its reply in the logs; the error is always nil.
func (a *RequestAuthenticator) BeforeSend(ctx context.Context, request *soap.Message) (any, error) {
	correlationID := uuid.New()
	identity := a.template

	if a.tokens != nil {
		fetchCtx := ctx
		if timeout := a.tokens.FetchTimeout(); timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		token, err := a.tokens.AcquireToken(fetchCtx)
		if err != nil {
			a.Logger.Warn("Sending request without authentication token",
				zap.String("CorrelationId", correlationID.String()),
				zap.String("Action", request.Action),
				zap.Error(err),
			)
		} else {
			identity = identity.WithAuthenticationToken(token)
		}
	}

	stamped := identity.Stamp(&request.Headers)
	a.Logger.Debug("Identity headers stamped",
		zap.String("CorrelationId", correlationID.String()),
		zap.String("Action", request.Action),
		zap.Int("Headers", stamped),
	)
	return correlationID, nil
}

// AfterReceive logs the reply against the correlation id returned by BeforeSend.
func (a *RequestAuthenticator) AfterReceive(ctx context.Context, reply *soap.Message, correlationState any) {
	id, _ := correlationState.(uuid.UUID)
	a.Logger.Debug("Reply received",
		zap.String("CorrelationId", id.String()),
		zap.String("Action", reply.Action),
		zap.Int("StatusCode", reply.StatusCode),
		zap.String("TrackingId", reply.TrackingID()),
	)
}
