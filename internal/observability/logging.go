// Package observability configures logging and holds the Prometheus metrics of the service.
package observability

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

var logLevels = map[string]logrus.Level{
	"error": logrus.ErrorLevel,
	"warn":  logrus.WarnLevel,
	"info":  logrus.InfoLevel,
	"debug": logrus.DebugLevel,
	"trace": logrus.TraceLevel,
}

// ConfigureLogging sets the level and formatter of the standard logrus logger.
func ConfigureLogging(level, format string) error {
	lvl, ok := logLevels[level]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	logrus.SetLevel(lvl)

	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
