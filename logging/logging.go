// Package logging provides the small leveled-logging surface that picp's
// core uses for its optional verbose side channel: a Level type with JSON
// behavior, backed by github.com/edaniels/golog.
package logging

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Level is a logging severity, ordered DEBUG < INFO < WARN < ERROR.
type Level int

// The four levels picp ever emits.
const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	default:
		return "Unknown"
	}
}

// LevelFromString parses a level name case-insensitively. "warning" is
// accepted as an alias for WARN.
func LevelFromString(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return DEBUG, errors.Errorf("unknown log level %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := LevelFromString(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Logger is the verbose side-channel contract consumed by the iteration
// controller and facade. It intentionally only carries the handful of
// methods picp calls; any golog.Logger or *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// NewLogger returns a development-mode Logger, named for the component
// emitting through it.
func NewLogger(name string) Logger {
	return golog.NewDevelopmentLogger(name)
}

// NewTestLogger returns a Logger that writes through t.Log, for use in
// picp's test suite.
func NewTestLogger(t *testing.T) Logger {
	return golog.NewTestLogger(t)
}

// NopLogger discards everything; used as the default when a caller passes
// a nil Logger into the facade.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
