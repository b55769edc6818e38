package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger for env.
//
//	prod               JSON lines with an ISO8601 "ts" field
//	local, dev, docker colored console output
//	test               no output
//
// A non-empty level (debug, info, warn, error) replaces the env default.
func NewLogger(env, level string) (*zap.Logger, error) {
	if env == "test" {
		return zap.NewNop(), nil
	}

	cfg, err := envConfig(env)
	if err != nil {
		return nil, err
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.Named("vecrag"), nil
}

func envConfig(env string) (zap.Config, error) {
	switch env {
	case "prod":
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg, nil
	case "local", "dev", "docker":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, nil
	}
	return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
}
