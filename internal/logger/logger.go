package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const (
	// FieldPackage is the name of the package that emits the log entry.
	FieldPackage = "package"

	// FieldFunction is the name of the function that emits the log entry.
	FieldFunction = "function"

	// FieldRun identifies a single conversion run.
	FieldRun = "run_id"
)

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Config
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Log is a structured leveled logger.
//
// Error and Errorf take the error as a separate argument,
// so it is always attached to the entry as a structured field.
type Log interface {
	WithField(key string, value interface{}) Log
	WithFields(fields Fields) Log

	Trace(args ...interface{})
	Debug(args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(err error, args ...interface{})
	Errorf(err error, format string, args ...interface{})
}

// logrusLog
type logrusLog struct {
	entry *logrus.Entry
}

// New creates a logger that writes to out using the configured level and format.
func New(conf Config, out io.Writer) (Log, error) {
	if out == nil {
		out = os.Stderr
	}

	level := logrus.InfoLevel
	if conf.Level != "" {
		l, err := logrus.ParseLevel(conf.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)

	switch strings.ToLower(conf.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", conf.Format)
	}

	return &logrusLog{entry: logrus.NewEntry(l)}, nil
}

// NewNullLogger creates a discarding logger and the hook
// that records every entry for assertions in tests.
func NewNullLogger() (Log, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.TraceLevel)
	return &logrusLog{entry: logrus.NewEntry(l)}, hook
}

func (l *logrusLog) WithField(key string, value interface{}) Log {
	return &logrusLog{entry: l.entry.WithField(key, value)}
}

func (l *logrusLog) WithFields(fields Fields) Log {
	return &logrusLog{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLog) Trace(args ...interface{}) {
	l.entry.Trace(args...)
}

func (l *logrusLog) Debug(args ...interface{}) {
	l.entry.Debug(args...)
}

func (l *logrusLog) Info(args ...interface{}) {
	l.entry.Info(args...)
}

func (l *logrusLog) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLog) Warn(args ...interface{}) {
	l.entry.Warn(args...)
}

func (l *logrusLog) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLog) Error(err error, args ...interface{}) {
	l.entry.WithError(err).Error(args...)
}

func (l *logrusLog) Errorf(err error, format string, args ...interface{}) {
	l.entry.WithError(err).Errorf(format, args...)
}
