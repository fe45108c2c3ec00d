package main

import (
	"io"
	"log/slog"

	slogrus "github.com/samber/slog-logrus/v2"
	"github.com/sirupsen/logrus"
)

// newLogger builds a logrus logger writing to w and exposes it through slog,
// which is what the upload client logs with.
func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, usagef("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)

	switch format {
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, usagef("invalid log format %q: must be text or json", format)
	}

	return slog.New(slogrus.Option{
		Level:  slogLevel(lvl),
		Logger: logger,
	}.NewLogrusHandler()), nil
}

func slogLevel(lvl logrus.Level) slog.Level {
	switch {
	case lvl >= logrus.DebugLevel:
		return slog.LevelDebug
	case lvl == logrus.InfoLevel:
		return slog.LevelInfo
	case lvl == logrus.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
