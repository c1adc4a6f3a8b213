/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package log provides a module-scoped logger for the flownode packages.
package log

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a leveled, module-tagged logger. Obtain instances via New.
type Logger struct {
	entry *logrus.Entry
}

// New returns a Logger tagged with the given module name
// (e.g. "flownode/vdr").
func New(module string) *Logger {
	return &Logger{entry: logrus.StandardLogger().WithField("module", module)}
}

// Fatalf logs a fatal message and exits.
func (l *Logger) Fatalf(msg string, args ...interface{}) {
	l.entry.Fatalf(msg, args...)
}

// Errorf logs an error message.
func (l *Logger) Errorf(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

// Warnf logs a warning message.
func (l *Logger) Warnf(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

// Infof logs an informational message.
func (l *Logger) Infof(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

// Debugf logs a debug message.
func (l *Logger) Debugf(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}

// SetLevel sets the global logging level from its string representation
// (panic, fatal, error, warn, info, debug, trace).
func SetLevel(level string) error {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	logrus.SetLevel(parsed)

	return nil
}

//nolint:gochecknoinits
func init() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
