package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds configuration for the logrus-backed logger
type Config struct {
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// Output receives log lines when File.Path is empty (default stderr)
	Output io.Writer
	// File enables rotating file output
	File RotatingFileConfig
}

// LogrusLogger implements Logger on top of logrus
type LogrusLogger struct {
	entry  *logrus.Entry
	closer io.Closer
}

var _ Logger = (*LogrusLogger)(nil)

// NewLogrusLogger creates a logger writing to a file or to cfg.Output
func NewLogrusLogger(cfg Config) (*LogrusLogger, error) {
	logger := logrus.New()

	var closer io.Closer
	switch {
	case cfg.File.Path != "":
		file, err := NewRotatingFile(cfg.File)
		if err != nil {
			return nil, err
		}
		logger.SetOutput(file)
		closer = file
	case cfg.Output != nil:
		logger.SetOutput(cfg.Output)
	default:
		logger.SetOutput(os.Stderr)
	}

	if cfg.Format == FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: cfg.File.Path != "",
		})
	}
	logger.SetLevel(toLogrusLevel(cfg.Level))

	return &LogrusLogger{entry: logrus.NewEntry(logger), closer: closer}, nil
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *LogrusLogger) with(ctx context.Context, fields Fields) *logrus.Entry {
	e := l.entry
	if ctx != nil {
		e = e.WithContext(ctx)
	}
	if len(fields) > 0 {
		e = e.WithFields(logrus.Fields(fields))
	}
	return e
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.with(ctx, fields).Debug(msg)
}

// Info logs an info message
func (l *LogrusLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.with(ctx, fields).Info(msg)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.with(ctx, fields).Warn(msg)
}

// Error logs an error message
func (l *LogrusLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	e := l.with(ctx, fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

// WithFields returns a logger with additional fields sharing the same output
func (l *LogrusLogger) WithFields(fields Fields) Logger {
	return &LogrusLogger{
		entry:  l.entry.WithFields(logrus.Fields(fields)),
		closer: l.closer,
	}
}

// Close closes the log file, if any
func (l *LogrusLogger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
