package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"hotspot-billing/internal/config"

	"github.com/rs/zerolog"
)

// New builds the process logger. Dev mode forces console output and disables
// sampling; otherwise cfg.Format picks json or console.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	return newWithWriter(cfg, dev, os.Stdout)
}

func newWithWriter(cfg config.LogConfig, dev bool, w io.Writer) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if dev || strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(w).With().Timestamp().Str("service", "hotspot-billing").Logger()
	if cfg.Sampling && !dev {
		// warnings and errors are never sampled
		logger = logger.Sample(zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: 100},
			InfoSampler:  &zerolog.BasicSampler{N: 10},
		})
	}
	return &logger
}

type ctxKey int

const (
	keyTraceID ctxKey = iota
	keyReference
	keyActor
)

var fieldNames = [...]string{
	keyTraceID:   "trace_id",
	keyReference: "reference",
	keyActor:     "actor",
}

// With returns base enriched with the request fields stored on ctx.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	lc := base.With()
	for k, name := range fieldNames {
		if v, ok := ctx.Value(ctxKey(k)).(string); ok && v != "" {
			lc = lc.Str(name, v)
		}
	}
	logger := lc.Logger()
	return &logger
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyTraceID, id)
}

func WithReference(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, keyReference, ref)
}

func WithActor(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, keyActor, subject)
}

// TraceID returns the trace id stored on ctx, or "".
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(keyTraceID).(string)
	return v
}

// TraceDuration logs entry and exit of name at trace level.
//
//	defer logging.TraceDuration(log, "ReconcileUC.HandleNotification")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	start := time.Now()
	logger.Trace().Str("method", name).Msg("start")
	return func() {
		logger.Trace().Str("method", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}

// Redact masks credentials outside dev mode, keeping a short preview for
// values long enough that the preview reveals little.
func Redact(s string, dev bool) string {
	if dev {
		return s
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}
