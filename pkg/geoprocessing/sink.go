package geoprocessing

import (
	"go.uber.org/zap"

	"yqhp/geoanalysis/pkg/types"
)

// MessageSink receives job progress messages as they are first seen.
type MessageSink interface {
	Relay(ev types.MessageEvent)
}

// SinkFunc adapts a function to MessageSink.
type SinkFunc func(ev types.MessageEvent)

// Relay calls f(ev).
func (f SinkFunc) Relay(ev types.MessageEvent) {
	f(ev)
}

// MultiSink relays to every sink in order.
type MultiSink []MessageSink

// Relay implements MessageSink.
func (m MultiSink) Relay(ev types.MessageEvent) {
	for _, s := range m {
		s.Relay(ev)
	}
}

// LogSink writes progress messages to a zap logger at the matching level.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink writing to l.
func NewLogSink(l *zap.Logger) *LogSink {
	return &LogSink{log: l}
}

// Relay implements MessageSink.
func (s *LogSink) Relay(ev types.MessageEvent) {
	fields := []zap.Field{
		zap.String("task", ev.Task),
		zap.String("job_id", ev.JobID),
		zap.Int("index", ev.Index),
	}
	switch ev.Message.Type.Severity() {
	case types.SeverityError:
		s.log.Error(ev.Message.Description, fields...)
	case types.SeverityWarn:
		s.log.Warn(ev.Message.Description, fields...)
	default:
		s.log.Info(ev.Message.Description, fields...)
	}
}
