package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON = "json"
	FormatText = "text"
	FormatZap  = "zap"
)

// Options selects the adapter and its verbosity.
type Options struct {
	Format string // json, text or zap
	Level  string // debug, info, warn, error
	Env    string // "dev" switches zap to the console encoder
	Output io.Writer
}

// New builds a Logger from opts. Unknown formats and levels are errors so a
// typo in configuration is caught at startup.
func New(opts Options) (Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatJSON
	}

	switch format {
	case FormatJSON, FormatText:
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelOrDefault(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		ho := &slog.HandlerOptions{Level: level}
		var h slog.Handler
		if format == FormatJSON {
			h = slog.NewJSONHandler(opts.Output, ho)
		} else {
			h = slog.NewTextHandler(opts.Output, ho)
		}
		return NewSlogLogger(slog.New(h)), nil

	case FormatZap:
		level, err := zapcore.ParseLevel(levelOrDefault(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}

		var encoder zapcore.Encoder
		if opts.Env == "dev" {
			encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		} else {
			ec := zap.NewProductionEncoderConfig()
			ec.TimeKey = "time"
			ec.EncodeTime = zapcore.ISO8601TimeEncoder
			ec.EncodeDuration = zapcore.StringDurationEncoder
			encoder = zapcore.NewJSONEncoder(ec)
		}

		core := zapcore.NewCore(encoder, zapcore.AddSync(opts.Output), zap.NewAtomicLevelAt(level))
		return NewZapLogger(zap.New(core, zap.AddStacktrace(zap.ErrorLevel))), nil
	}

	return nil, fmt.Errorf("unknown log format %q", opts.Format)
}

func levelOrDefault(level string) string {
	if strings.TrimSpace(level) == "" {
		return "info"
	}
	return strings.ToLower(strings.TrimSpace(level))
}
