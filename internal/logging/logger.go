package logging

import (
	"os"
	"strings"

	"github.com/op/go-logging"
)

const format = `%{time:2006-01-02 15:04:05} %{level:.5s} %{module} %{message}`

// InitLogger receives the log level to be set in go-logging as a string
// (DEBUG, INFO, WARNING, ERROR...). If the level string is not valid an
// error is returned and the previous backend is kept.
func InitLogger(logLevel string) error {
	level, err := logging.LogLevel(strings.ToUpper(logLevel))
	if err != nil {
		return err
	}

	baseBackend := logging.NewLogBackend(os.Stdout, "", 0)
	backendFormatter := logging.NewBackendFormatter(baseBackend, logging.MustStringFormatter(format))

	backendLeveled := logging.AddModuleLevel(backendFormatter)
	backendLeveled.SetLevel(level, "")

	logging.SetBackend(backendLeveled)
	return nil
}

// IsDebug reports whether the given level string enables debug output.
func IsDebug(logLevel string) bool {
	return strings.EqualFold(logLevel, "DEBUG")
}

// MustGetLogger returns the named module logger.
func MustGetLogger(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}
