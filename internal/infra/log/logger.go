package log

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON logger for production levels and a console one for debug.
func New(levelEnv string) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if levelEnv != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(levelEnv))); err != nil {
			fmt.Printf("bad LOG_LEVEL=%s, fallback to info\n", levelEnv)
		}
	}

	cfg := zap.NewProductionConfig()
	if level.Level() == zap.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func Must(levelEnv string) *zap.Logger {
	l, err := New(levelEnv)
	if err != nil {
		panic(err)
	}
	return l
}

// Identity hashes a user-supplied identifier so logs never carry raw emails.
func Identity(s string) zap.Field {
	return zap.String("user", fmt.Sprintf("%x", sha256.Sum256([]byte(strings.ToLower(s))))[:16])
}
