package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WatermillLogger routes watermill logs through the global zerolog logger
type WatermillLogger struct {
	fields watermill.LogFields
}

// NewWatermillLogger creates a watermill logger adapter
func NewWatermillLogger() *WatermillLogger {
	return &WatermillLogger{}
}

var _ watermill.LoggerAdapter = (*WatermillLogger)(nil)

func (l *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(log.Error().Err(err), fields).Msg(msg)
}

func (l *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(log.Info(), fields).Msg(msg)
}

func (l *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(log.Debug(), fields).Msg(msg)
}

func (l *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(log.Trace(), fields).Msg(msg)
}

func (l *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillLogger{fields: l.fields.Add(fields)}
}

func (l *WatermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	return e.Str("component", "watermill").Fields(map[string]any(l.fields.Add(fields)))
}
