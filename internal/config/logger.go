package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultServiceName = "linkedin-finder"

// NewLogger - json в проде, цветной консольный вывод на debug.
// Каждая запись несет поле service.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	logger, err := loggerConfig(cfg).Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func loggerConfig(cfg LogConfig) zap.Config {
	level := parseLogLevel(cfg.Level)

	var zc zap.Config
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		// ретраи провайдера и отказы записи истории не должны теряться при семплировании
		zc.Sampling = nil
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.CallerKey = "caller"
	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	service := strings.TrimSpace(cfg.Service)
	if service == "" {
		service = DefaultServiceName
	}
	zc.InitialFields = map[string]interface{}{"service": service}

	return zc
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
