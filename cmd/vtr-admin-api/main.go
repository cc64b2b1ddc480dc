// Package main is the entry point for the token registry admin API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/verinode/token-registry-server/cmd/vtr-admin-api/app"
	"github.com/verinode/token-registry-server/internal/config"
)

// getLogLevel parses the VTR_LOG_LEVEL environment variable and returns the
// corresponding slog.Level. Falls back to LOG_LEVEL for backward
// compatibility. Defaults to slog.LevelInfo if neither is set or if the
// value is invalid.
func getLogLevel() slog.Level {
	// Viper only carries env lookups here; file config is loaded later by
	// the serve command.
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")

	// The unprefixed LOG_LEVEL spelling is still honored.
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Unknown log level, defaulting to info", "value", levelStr)
		return slog.LevelInfo
	}
}

// spanContextHandler stamps every record with the ids of the active span
// so log lines can be joined with traces.
type spanContextHandler struct {
	slog.Handler
}

func (h *spanContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *spanContextHandler) WithGroup(name string) slog.Handler {
	return &spanContextHandler{Handler: h.Handler.WithGroup(name)}
}

func main() {
	// JSON logs go to stderr so stdout stays clean for commands that print
	// data, such as version --format json.
	baseHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: getLogLevel(),
	})
	logger := slog.New(&spanContextHandler{Handler: baseHandler})
	slog.SetDefault(logger)

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
