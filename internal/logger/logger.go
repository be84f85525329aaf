package logger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New() *zap.SugaredLogger {
	var (
		log *zap.Logger
		err error
	)
	opts := []zap.Option{
		zap.AddStacktrace(zap.ErrorLevel),
	}

	if strings.ToLower(os.Getenv("ALLOCATOR_ENV")) == "dev" {
		log, err = zap.NewDevelopment(opts...)
	} else {
		opts = append(opts, zap.Fields(zap.Field{
			Key:    "ALLOCATOR_ENV",
			Type:   zapcore.StringType,
			String: os.Getenv("ALLOCATOR_ENV"),
		}))
		log, err = zap.NewProduction(opts...)
	}

	if err != nil {
		panic(fmt.Errorf("failed to initialize logger: %w", err))
	}

	return log.Sugar()
}

type contextKey struct{}

func AddToContext(ctx context.Context, log *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

func FromContext(ctx context.Context) *zap.SugaredLogger {
	log, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger)
	if !ok {
		log = New()
		log.Warn("no logger found in ctx - creating new one")
	}
	return log
}
