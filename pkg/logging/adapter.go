// Package logging provides the one concrete logger cmd/workstation
// constructs and hands to every library package's small Logger interface
// (pkg/audio, pkg/asr, pkg/ssml, pkg/bridge, pkg/dataflow, pkg/dispatcher,
// pkg/integration, pkg/voice). Library packages never import
// this package directly — they stay decoupled from any concrete logging
// dependency, matching the teacher's top-level logging setup.
package logging

import (
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Adapter wraps a *charmlog.Logger and implements every package-local
// Logger interface in this module: Debug/Info/Warn/Error(msg string, args
// ...any).
type Adapter struct {
	l *charmlog.Logger
}

// New constructs an Adapter at the given level ("debug", "info", "warn",
// "error"; unrecognized values fall back to "info"), writing structured,
// colorized, leveled output to stderr with a timestamp — the teacher's
// top-level logging shape.
func New(level string) *Adapter {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Level:           parseLevel(level),
	})
	return &Adapter{l: l}
}

// NewWithLogger wraps an already-constructed charmlog.Logger, e.g. one with
// a Prefix set for a specific subsystem via l.With(...).
func NewWithLogger(l *charmlog.Logger) *Adapter {
	return &Adapter{l: l}
}

// With returns a child Adapter whose entries carry the given key/value
// pairs, matching charmlog's own With() convention.
func (a *Adapter) With(args ...interface{}) *Adapter {
	return &Adapter{l: a.l.With(args...)}
}

func (a *Adapter) Debug(msg string, args ...interface{}) { a.l.Debug(msg, args...) }
func (a *Adapter) Info(msg string, args ...interface{})  { a.l.Info(msg, args...) }
func (a *Adapter) Warn(msg string, args ...interface{})  { a.l.Warn(msg, args...) }
func (a *Adapter) Error(msg string, args ...interface{}) { a.l.Error(msg, args...) }

func parseLevel(level string) charmlog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
