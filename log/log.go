// Package log builds the logrus loggers used by the hosted programs.
package log

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// New initializes and returns a logger writing text lines to stdout. Every
// entry carries the app field.
func New(appID, logLevel string) (*logrus.Logger, error) {
	return NewWithOutput(appID, logLevel, os.Stdout)
}

// NewWithOutput is New with a custom destination.
func NewWithOutput(appID, logLevel string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log: ParseLevel()")
	}

	log := &logrus.Logger{
		Level: lvl,
		Out:   out,
		Hooks: make(logrus.LevelHooks),
		Formatter: &formatter{
			Formatter: &logrus.TextFormatter{
				FullTimestamp: true,
			},
			defaultFields: logrus.Fields{
				"app": appID,
			},
		},
	}
	return log, nil
}

type formatter struct {
	logrus.Formatter
	defaultFields logrus.Fields
}

func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	for k, v := range f.defaultFields {
		entry.Data[k] = v
	}
	return f.Formatter.Format(entry)
}
