// Package monitoring holds the process-wide diagnostic loggers.
package monitoring

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *log.Logger {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l.SetLevel(log.InfoLevel)
	return l
}

// Logf is the package-level diagnostic logger. It defaults to the logrus
// info level but may be replaced by SetLogger. Tests or production code can
// redirect or mute it.
var Logf func(format string, v ...interface{}) = base.Infof

// Debugf logs details useful when chasing a misbehaving sensor.
var Debugf func(format string, v ...interface{}) = base.Debugf

// Tracef logs per-sample chatter. Only visible at the verbose level.
var Tracef func(format string, v ...interface{}) = base.Tracef

// Errorf logs failures that end a sensor check.
var Errorf func(format string, v ...interface{}) = base.Errorf

// SetLogger replaces every package logger with f. Passing nil will set a
// no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf, Debugf, Tracef, Errorf = f, f, f, f
}

// Reset restores the logrus-backed loggers.
func Reset() {
	Logf, Debugf, Tracef, Errorf = base.Infof, base.Debugf, base.Tracef, base.Errorf
}

// SetOutput redirects the logrus backend.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetLevel accepts the logrus level names plus "verbose" (trace) and
// "none" (panic only).
func SetLevel(level string) error {
	switch strings.ToLower(level) {
	case "verbose":
		base.SetLevel(log.TraceLevel)
		return nil
	case "none", "off":
		base.SetLevel(log.PanicLevel)
		return nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}
