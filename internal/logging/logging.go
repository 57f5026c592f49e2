// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the logrus logger shared by the CLI and the REST app.
package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var errLevelNotRecognized = errors.New("log level not recognized")

// versionFormatter stamps every entry with the cabinet version.
type versionFormatter struct {
	logrus.Formatter
	version string
}

func (f *versionFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Data["cabinet_version"] = f.version
	return f.Formatter.Format(e)
}

// ParseLevel converts a level name to a logrus level. It is case insensitive.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "panic":
		return logrus.PanicLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "info", "":
		return logrus.InfoLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "trace":
		return logrus.TraceLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("%w: %q", errLevelNotRecognized, level)
	}
}

// New returns a logger writing to w. format is "text" or "json"; anything
// else falls back to text.
func New(w io.Writer, level, format, version string) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)

	var base logrus.Formatter = &logrus.TextFormatter{DisableColors: true}
	if format == "json" {
		base = &logrus.JSONFormatter{}
	}
	logger.SetFormatter(&versionFormatter{Formatter: base, version: version})

	return logger, nil
}

// Configure applies the same settings to the logrus standard logger, which
// packages without an injected logger write to.
func Configure(w io.Writer, level, format, version string) (*logrus.Logger, error) {
	logger, err := New(w, level, format, version)
	if err != nil {
		return nil, err
	}
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.Level)
	logrus.SetFormatter(logger.Formatter)
	return logger, nil
}
