package commands

import (
	"fmt"
	"log/slog"

	console "github.com/normaladmin/go-console-sdk"
)

// slogLogger routes client logging through the CLI's structured logger.
type slogLogger struct {
	logger *slog.Logger
}

var _ console.Logger = slogLogger{}

func (l slogLogger) Printf(format string, a ...any) {
	l.logger.Info(fmt.Sprintf(format, a...))
}

func (l slogLogger) Infof(format string, a ...any) {
	l.logger.Info(fmt.Sprintf(format, a...))
}

func (l slogLogger) Debugf(format string, a ...any) {
	l.logger.Debug(fmt.Sprintf(format, a...))
}

func (l slogLogger) Warnf(format string, a ...any) {
	l.logger.Warn(fmt.Sprintf(format, a...))
}

func (l slogLogger) Errorf(format string, a ...any) error {
	err := fmt.Errorf(format, a...)
	l.logger.Error(err.Error())
	return err
}
