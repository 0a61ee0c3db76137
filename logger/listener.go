package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Listener receives every log entry written through a Sink. source is the name of the
// component that logged the entry (see Logger.Named).
type Listener func(message string, source string, level LogLevel)

// Sink fans log entries out to a replaceable Listener. A Sink without a listener is silent,
// and a listener that panics never takes the caller down with it.
type Sink struct {
	listener atomic.Pointer[Listener]
}

// NewSink creates a Sink. listener may be nil.
func NewSink(listener Listener) *Sink {
	s := &Sink{}
	s.SetListener(listener)
	return s
}

// SetListener replaces the current listener. Passing nil silences the sink.
func (s *Sink) SetListener(listener Listener) {
	if listener == nil {
		s.listener.Store(nil)
		return
	}
	s.listener.Store(&listener)
}

// Logger returns a Logger writing into the sink at the given level.
func (s *Sink) Logger(level LogLevel) Logger {
	core := &listenerCore{LevelEnabler: zapcore.DebugLevel, sink: s}
	return &defaultLogger{logger: zap.New(core), logLevel: level}
}

// NewListenerLogger is shorthand for NewSink(listener).Logger(level).
func NewListenerLogger(listener Listener, level LogLevel) Logger {
	return NewSink(listener).Logger(level)
}

type listenerCore struct {
	zapcore.LevelEnabler
	sink   *Sink
	fields []zapcore.Field
}

// With adds structured context to the Core.
func (c *listenerCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &listenerCore{LevelEnabler: c.LevelEnabler, sink: c.sink, fields: merged}
}

// Check determines whether the supplied Entry should be logged.
func (c *listenerCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) && c.sink.listener.Load() != nil {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write renders the entry and hands it to the listener. Listener panics are swallowed.
func (c *listenerCore) Write(entry zapcore.Entry, fields []zapcore.Field) (err error) {
	listener := c.sink.listener.Load()
	if listener == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = nil
		}
	}()

	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	(*listener)(formatMessage(entry.Message, all), entry.LoggerName, convertFromZapLevel(entry.Level))
	return nil
}

// Sync flushes buffered logs (if any).
func (c *listenerCore) Sync() error {
	return nil
}

// formatMessage appends fields to msg as sorted key=value pairs.
func formatMessage(msg string, fields []zapcore.Field) string {
	if len(fields) == 0 {
		return msg
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}
	return b.String()
}
