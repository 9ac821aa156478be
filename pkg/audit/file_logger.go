package audit

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// FileLogger writes events as JSON lines for offline retention
type FileLogger struct {
	logger *logrus.Logger
}

// NewFileLogger creates a logrus-backed event logger writing to out
func NewFileLogger(out io.Writer) *FileLogger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	return &FileLogger{logger: logger}
}

// Record writes the event as a structured log line
func (l *FileLogger) Record(ctx context.Context, event *Event) error {
	l.logger.WithFields(logrus.Fields{
		"event_id":      event.ID,
		"estate_id":     event.EstateID,
		"actor_id":      event.ActorID,
		"action":        event.Action,
		"resource_type": event.ResourceType,
		"resource_id":   event.ResourceID,
		"detail":        event.Detail,
	}).Info("estate event")
	return nil
}

// MultiLogger fans an event out to several loggers. The first error is
// returned but all loggers are attempted.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Record sends the event to every configured logger
func (l *MultiLogger) Record(ctx context.Context, event *Event) error {
	var firstErr error
	for _, logger := range l.loggers {
		if err := logger.Record(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
