package logger

import (
	"log/slog"
	"os"
	"strings"
)

var base = slog.Default()

// Init configures the process-wide logger. Development gets a readable
// text handler at debug level; everything else gets JSON at info level.
func Init(env string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	base = slog.New(handler)
	slog.SetDefault(base)
}

func attrs(fields map[string]any) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func Debug(msg string, fields map[string]any) {
	base.Debug(msg, attrs(fields)...)
}

func Info(msg string, fields map[string]any) {
	base.Info(msg, attrs(fields)...)
}

func Warn(msg string, fields map[string]any) {
	base.Warn(msg, attrs(fields)...)
}

func Error(msg string, fields map[string]any) {
	base.Error(msg, attrs(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	base.Error(msg, attrs(fields)...)
	os.Exit(1)
}
