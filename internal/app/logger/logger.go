package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// logLevels maps log level names to slog.Level values.
var logLevels = map[string]slog.Level{
	"trace":   slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// CleanupFunc is a function that can be deferred to clean up resources.
type CleanupFunc func() error

// ParseLevel returns the slog level of a level name.
func ParseLevel(name string) (slog.Level, error) {
	level, ok := logLevels[strings.ToLower(name)]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", name)
	}
	return level, nil
}

// InitDefaultLogger configures the default logger from the root flags:
// log-level, log-format, log-file and no-color.
func InitDefaultLogger(app *cli.Command) (CleanupFunc, error) {
	deferred := func() error { return nil }

	logLevel, err := ParseLevel(app.String("log-level"))
	if err != nil {
		return deferred, err
	}

	w := os.Stderr
	if path := app.String("log-file"); path != "" {
		w, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return deferred, err
		}
		deferred = w.Close
	}

	switch strings.ToLower(app.String("log-format")) {
	case "text":
		SetColoredLogger(w, logLevel, app.Bool("no-color"))
	case "json":
		SetDefaultJSONLogger(w, logLevel)
	default:
		return deferred, fmt.Errorf("invalid log format: %s", app.String("log-format"))
	}

	return deferred, nil
}

func SetColoredLogger(w *os.File, logLevel slog.Level, forceNoColor bool) {
	slog.SetDefault(slog.New(
		tint.NewHandler(
			colorable.NewColorable(w),
			&tint.Options{
				Level:      logLevel,
				TimeFormat: time.TimeOnly,
				NoColor:    !isatty.IsTerminal(w.Fd()) || os.Getenv("NO_COLOR") != "" || forceNoColor,
				AddSource:  logLevel == slog.LevelDebug,
			},
		),
	))
}

func SetPlainTextLogger(w io.Writer, logLevel slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(
			w,
			&tint.Options{
				Level:      logLevel,
				TimeFormat: time.TimeOnly,
				NoColor:    true,
			},
		),
	))
}

func SetDefaultJSONLogger(w io.Writer, logLevel slog.Level) {
	slog.SetDefault(slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: logLevel == slog.LevelDebug,
			Level:     logLevel,
		}),
	))
}
