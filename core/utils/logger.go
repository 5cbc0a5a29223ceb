package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	sugar *zap.SugaredLogger
}

func NewLogger() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return NewNopLogger()
	}
	return &Logger{sugar: base.Sugar()}
}

// NewNopLogger discards everything. Used by tests and CLI helpers.
func NewNopLogger() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) With(keysAndValues ...any) *Logger {
	if l == nil || l.sugar == nil {
		return l
	}
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Printf(format string, v ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Infof(format, v...)
}

func (l *Logger) Println(v ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Info(v...)
}

func (l *Logger) Warnf(format string, v ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, v...)
}

func (l *Logger) Errorf(format string, v ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, v...)
}

func (l *Logger) Fatalf(format string, v ...any) {
	if l == nil || l.sugar == nil {
		os.Exit(1)
	}
	l.sugar.Errorf("FATAL: "+format, v...)
	_ = l.sugar.Sync()
	os.Exit(1)
}

func (l *Logger) Sync() {
	if l == nil || l.sugar == nil {
		return
	}
	_ = l.sugar.Sync()
}
