package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink adapts a zap logger to the Sink port. Critical maps to zap's
// error level with a marker field since zap has no level above Error that
// does not panic.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (s *ZapSink) Emit(rec Record) {
	fields := []zap.Field{
		zap.String("file", rec.File),
		zap.String("function", rec.Function),
		zap.Int("line", rec.Line),
	}
	switch rec.Level {
	case LevelInfo:
		s.logger.Info(rec.Message, fields...)
	case LevelWarn:
		s.logger.Warn(rec.Message, fields...)
	case LevelError:
		s.logger.Error(rec.Message, fields...)
	case LevelCritical:
		s.logger.Error(rec.Message, append(fields, zap.Bool("critical", true))...)
	}
}

// ZapLevel converts a port level to the closest zapcore level.
func ZapLevel(l Level) zapcore.Level {
	switch l {
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
