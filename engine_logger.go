package mq

import "log/slog"

// slogEngineLogger adapts *slog.Logger to engine.Logger, so the cooperative
// core can log without importing log/slog itself.
type slogEngineLogger struct {
	l *slog.Logger
}

func (s slogEngineLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogEngineLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogEngineLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
