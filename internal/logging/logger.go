// Package logging builds the zap logger shared by the framework and the
// example application.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

// New builds a logger for env ("dev" or "prod") at the given level.
// Development logs go to stdout through a coloured console encoder,
// production logs are JSON. Errors always also reach stderr as JSON.
func New(env, level string) (*zap.Logger, error) {
	return NewWithWriters(env, level, os.Stdout, os.Stderr)
}

// NewWithWriters is New with explicit outputs
func NewWithWriters(env, level string, out, errOut io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(timeLayout))
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var main zapcore.Encoder
	switch env {
	case "prod", "production":
		main = zapcore.NewJSONEncoder(encoderConfig)
	case "", "dev", "development", "test":
		conf := encoderConfig
		conf.EncodeLevel = zapcore.CapitalColorLevelEncoder
		main = zapcore.NewConsoleEncoder(conf)
	default:
		return nil, fmt.Errorf("unknown environment %q", env)
	}

	// stdout carries everything below error, stderr the rest
	below := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= lvl && l < zapcore.ErrorLevel
	})
	above := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= lvl && l >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(main, zapcore.AddSync(out), below),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(errOut), above),
	)
	return zap.New(core, zap.AddCaller()), nil
}
