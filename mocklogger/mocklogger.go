// mocklogger/mocklogger.go
package mocklogger

import (
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockLogger is a mock type for the Logger interface.
type MockLogger struct {
	mock.Mock
	logLevel logger.LogLevel
}

// NewMockLogger creates a new instance of MockLogger at debug level.
func NewMockLogger() *MockLogger {
	return &MockLogger{logLevel: logger.LogLevelDebug}
}

// Ensure MockLogger implements the logger.Logger interface from the logger package
var _ logger.Logger = (*MockLogger)(nil)

// GetLogLevel returns the level last passed to SetLevel.
func (m *MockLogger) GetLogLevel() logger.LogLevel {
	return m.logLevel
}

// SetLevel sets the logging level of the MockLogger.
func (m *MockLogger) SetLevel(level logger.LogLevel) {
	m.logLevel = level
}

// With returns the same mock so expectations keep applying to child loggers.
func (m *MockLogger) With(fields ...zap.Field) logger.Logger {
	return m
}

// Named returns the same mock so expectations keep applying to child loggers.
func (m *MockLogger) Named(name string) logger.Logger {
	return m
}

// Debug logs a message at the Debug level.
func (m *MockLogger) Debug(msg string, fields ...zap.Field) {
	m.Called(msg, fields)
}

// Info logs a message at the Info level.
func (m *MockLogger) Info(msg string, fields ...zap.Field) {
	m.Called(msg, fields)
}

// Warn logs a message at the Warn level.
func (m *MockLogger) Warn(msg string, fields ...zap.Field) {
	m.Called(msg, fields)
}

// Error logs a message at the Error level and returns an error.
func (m *MockLogger) Error(msg string, fields ...zap.Field) error {
	args := m.Called(msg, fields)
	return args.Error(0)
}

// AllowAll registers permissive expectations for every level, for tests that only care about side effects.
func (m *MockLogger) AllowAll() *MockLogger {
	m.On("Debug", mock.Anything, mock.Anything).Maybe()
	m.On("Info", mock.Anything, mock.Anything).Maybe()
	m.On("Warn", mock.Anything, mock.Anything).Maybe()
	m.On("Error", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}
