// Package applog builds the logger fastipc uses to trace the
// GuardedSegment close protocol, in the same shape the reference app's
// pkg/log does: JSON-formatted, level from LOG_LEVEL, a file sink under the
// PID root in debug mode, discarded entirely otherwise.
package applog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New returns a logger pre-tagged with the segment/primitive name, so every
// line it emits is attributable without the caller threading fields
// through every call.
func New(debug bool, logDir string, name string) *logrus.Entry {
	var log *logrus.Logger
	if debug {
		log = newDevelopmentLogger(logDir)
	} else {
		log = newProductionLogger()
	}
	log.Formatter = &logrus.JSONFormatter{}
	return log.WithFields(logrus.Fields{"name": name})
}

func getLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger(logDir string) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(getLogLevel())
	if logDir == "" {
		log.SetOutput(os.Stderr)
		return log
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.SetOutput(os.Stderr)
		return log
	}
	file, err := os.OpenFile(filepath.Join(logDir, "fastipc.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return log
	}
	log.SetOutput(file)
	return log
}

func newProductionLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.SetLevel(logrus.ErrorLevel)
	return log
}
