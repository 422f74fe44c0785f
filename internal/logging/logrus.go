// Package logging adapts logrus to the im.Logger interface.
package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fivetwenty-io/im-client/pkg/im"
	log "github.com/sirupsen/logrus"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var ErrUnknownFormat = errors.New("unknown log format")

// logger implements im.Logger on a logrus FieldLogger.
type logger struct {
	entry log.FieldLogger
}

var _ im.Logger = logger{}

// NewIMLogger returns an im.Logger writing through l.
func NewIMLogger(l log.FieldLogger) im.Logger {
	return logger{entry: l}
}

// Debug implements im.Logger.
func (l logger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(log.Fields(fields)).Debug(msg)
}

// Info implements im.Logger.
func (l logger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(log.Fields(fields)).Info(msg)
}

// Warn implements im.Logger.
func (l logger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(log.Fields(fields)).Warn(msg)
}

// Error implements im.Logger.
func (l logger) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(log.Fields(fields)).Error(msg)
}

// New builds a logrus logger writing to out at level ("debug", "info", ...)
// in the given format ("text" or "json"). An empty level means info.
func New(out io.Writer, level, format string) (*log.Logger, error) {
	l := log.New()
	l.SetOutput(out)

	if strings.TrimSpace(level) == "" {
		level = log.InfoLevel.String()
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	l.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", FormatText:
		l.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	case FormatJSON:
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	return l, nil
}
