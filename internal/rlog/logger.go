// Package rlog is the structured-logging seam used by the circuit
// breaker, strategies, and pipeline modules, so call sites never
// depend on a concrete logging library directly.
package rlog

import "go.uber.org/zap"

// Fields is a structured set of key/value pairs attached to a log entry.
type Fields map[string]any

// Logger is the minimal structured-logging surface the core depends on.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

// Nop discards every log entry. It is the default logger so constructing
// a client never requires wiring a logging backend.
type Nop struct{}

func (Nop) Debug(string, Fields) {}
func (Nop) Info(string, Fields)  {}
func (Nop) Warn(string, Fields)  {}
func (Nop) Error(string, Fields) {}

// Zap adapts a *zap.Logger (or *zap.SugaredLogger's underlying logger) to
// the Logger interface.
type Zap struct {
	L *zap.Logger
}

// NewZap wraps an existing *zap.Logger.
func NewZap(l *zap.Logger) Zap {
	return Zap{L: l}
}

func (z Zap) Debug(msg string, fields Fields) { z.L.Debug(msg, toZapFields(fields)...) }
func (z Zap) Info(msg string, fields Fields)  { z.L.Info(msg, toZapFields(fields)...) }
func (z Zap) Warn(msg string, fields Fields)  { z.L.Warn(msg, toZapFields(fields)...) }
func (z Zap) Error(msg string, fields Fields) { z.L.Error(msg, toZapFields(fields)...) }

func toZapFields(fields Fields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
