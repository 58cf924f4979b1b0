// file: logger/logger.go

package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide structured logger. It is usable before Init is
// called so that packages logging at import time or in tests never panic.
var Log = logrus.New()

// Init configures Log for JSON output on stdout at the given level.
// An unparseable level falls back to info.
func Init(level ...string) {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	lvl := logrus.InfoLevel
	if len(level) > 0 {
		if parsed, err := logrus.ParseLevel(level[0]); err == nil {
			lvl = parsed
		} else {
			Log.WithField("level", level[0]).Warn("Unknown log level, using info")
		}
	}
	Log.SetLevel(lvl)
}
