package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the shared JSON logger. Level comes from LOG_LEVEL when
// set; defaults to info.
func NewLogger() *logrus.Logger {
	logg := logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetOutput(os.Stdout)

	level := logrus.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := logrus.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	logg.SetLevel(level)
	return logg
}
