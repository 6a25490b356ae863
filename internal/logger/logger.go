// Package logger builds the zap logger shared by the server, the request
// middleware and the background consumer.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a development console logger when env is "dev" or "test" and
// a JSON production logger otherwise.
func New(env string) (*zap.Logger, error) {
	switch strings.ToLower(env) {
	case "dev", "development", "test":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	default:
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
}
