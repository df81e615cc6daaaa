package log

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var logger = logrus.New()

// Configure sets the log level and output format. The "console" format is
// only honored when stderr is a terminal; captured output stays JSON so it
// remains machine readable.
func Configure(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetOutput(os.Stderr)

	if format == "console" && term.IsTerminal(int(os.Stderr.Fd())) {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

// fields converts alternating key/value arguments into structured fields.
// Keys that are not strings are dropped rather than panicking mid-log.
func fields(keyvals []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		f[key] = keyvals[i+1]
	}
	return f
}

func Trace(msg string, keyvals ...interface{}) {
	logger.WithFields(fields(keyvals)).Trace(msg)
}

func Debug(msg string, keyvals ...interface{}) {
	logger.WithFields(fields(keyvals)).Debug(msg)
}

func Info(msg string, keyvals ...interface{}) {
	logger.WithFields(fields(keyvals)).Info(msg)
}

func Warn(msg string, keyvals ...interface{}) {
	logger.WithFields(fields(keyvals)).Warn(msg)
}

func Error(msg string, keyvals ...interface{}) {
	logger.WithFields(fields(keyvals)).Error(msg)
}
