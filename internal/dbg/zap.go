package dbg

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewDevLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	return build(cfg, zapcore.DebugLevel)
}

func NewProdLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	return build(cfg, zapcore.InfoLevel)
}

// NewLogger builds a logger from the runtime environment name and a level
// string. Unknown environments get the production encoder, unknown levels
// fall back to the environment default.
func NewLogger(env, level string) *zap.Logger {
	var cfg zap.Config
	lvl := zapcore.InfoLevel
	if env == "development" {
		cfg = zap.NewDevelopmentConfig()
		lvl = zapcore.DebugLevel
	} else {
		cfg = zap.NewProductionConfig()
	}
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		lvl = parsed
	}
	return build(cfg, lvl)
}

func build(cfg zap.Config, lvl zapcore.Level) *zap.Logger {
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
