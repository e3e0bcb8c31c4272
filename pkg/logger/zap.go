package logger

import (
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels understood on top of zap's own level names.
const (
	LevelQuiet   = "quiet"
	LevelNormal  = "normal"
	LevelVerbose = "verbose"
	LevelDebug   = "debug"
)

type ZapLogger struct {
	logger *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

func NewZapLogger(level string) *ZapLogger {
	developmentConfig := zap.NewDevelopmentConfig()

	developmentConfig.EncoderConfig.TimeKey = "time"
	developmentConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	developmentConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	developmentConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	developmentConfig.Level = zap.NewAtomicLevelAt(toZapLevel(level))

	// only the debug verbosity pays for caller lookups and stack traces
	if strings.ToLower(level) != LevelDebug {
		developmentConfig.DisableCaller = true
		developmentConfig.DisableStacktrace = true
	}

	logger, err := developmentConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		log.Fatal("error occurred while building zap logger: ", err)
	}

	return &ZapLogger{
		logger: logger.Sugar(),
	}
}

func toZapLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case LevelQuiet:
		return zapcore.ErrorLevel
	case LevelNormal, "":
		return zapcore.WarnLevel
	case LevelVerbose:
		return zapcore.InfoLevel
	case LevelDebug:
		return zapcore.DebugLevel
	}

	var level zapcore.Level
	err := level.UnmarshalText([]byte(levelStr))
	if err != nil {
		log.Println("WARN (toZapLevel): failed to unmarshal zap log level from string - using WARN level")
		return zapcore.WarnLevel
	}

	return level
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.logger.Fatalw(msg, keysAndValues...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func (l *ZapLogger) With(keysAndValues ...any) Logger {
	return &ZapLogger{
		logger: l.logger.With(keysAndValues...),
	}
}
