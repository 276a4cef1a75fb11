package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Output is JSON on stderr unless
// development mode is enabled.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.Set(c.Level); err != nil {
		return nil, errors.Wrapf(err, "parse log level %q", c.Level)
	}
	encoder := zapcore.EncoderConfig{
		TimeKey:        "@timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if c.Development {
		config.Development = true
		config.Encoding = "console"
		config.EncoderConfig.TimeKey = ""
	}
	return config.Build()
}

// invocationLogger returns a child logger tagged with the Lambda request id,
// or a generated one when running outside Lambda.
func invocationLogger(ctx context.Context, logger *zap.Logger) *zap.Logger {
	requestID := ""
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return logger.With(zap.String("request_id", requestID))
}
