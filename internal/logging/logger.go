package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vanshika/nftgateway/internal/config"
)

// New builds a zap.Logger configured according to the provided logging config.
// Format "console" selects the development encoder; anything else logs JSON.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zc.DisableCaller = !cfg.IncludeCaller
	zc.OutputPaths = []string{"stdout"}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}

func parseLevel(level string) zapcore.Level {
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
