// zaplogger_logfields.go
package logger

import (
	"time"

	"go.uber.org/zap"
)

// LogCallStart logs the initiation of a SOAP call, including the action, endpoint and envelope size.
// This function is intended to be called right before the envelope is written to the wire.
func LogCallStart(log Logger, action string, endpoint string, envelopeSize int) {
	log.Debug("SOAP call started",
		zap.String("event", "call_start"),
		zap.String("action", action),
		zap.String("endpoint", endpoint),
		zap.Int("envelope_size", envelopeSize),
	)
}

// LogCallEnd logs the completion of a SOAP call, including the HTTP status code and duration.
func LogCallEnd(log Logger, action string, endpoint string, statusCode int, duration time.Duration) {
	log.Debug("SOAP call completed",
		zap.String("event", "call_end"),
		zap.String("action", action),
		zap.String("endpoint", endpoint),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", duration),
	)
}

// LogFault logs a fault returned by the remote service.
func LogFault(log Logger, action string, endpoint string, statusCode int, faultCode string, faultMessage string) {
	log.Warn("SOAP call faulted",
		zap.String("event", "call_fault"),
		zap.String("action", action),
		zap.String("endpoint", endpoint),
		zap.Int("status_code", statusCode),
		zap.String("fault_code", faultCode),
		zap.String("fault_message", faultMessage),
	)
}

// LogTokenAcquired logs a freshly acquired access token. mode is "silent" or "interactive".
func LogTokenAcquired(log Logger, mode string, expiresOn time.Time) {
	log.Info("Access token acquired",
		zap.String("event", "token_acquired"),
		zap.String("mode", mode),
		zap.Time("expires_on", expiresOn),
		zap.Duration("lifetime", time.Until(expiresOn)),
	)
}

// LogAuthTokenError logs a failed token acquisition attempt.
func LogAuthTokenError(log Logger, mode string, err error) {
	log.Error("Access token acquisition failed",
		zap.String("event", "token_error"),
		zap.String("mode", mode),
		zap.Error(err),
	)
}
