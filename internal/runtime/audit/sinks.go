package audit

import (
	"io"
	"os"

	"github.com/drblury/fedstore/internal/runtime/logging"
)

// ConsoleIdentity is the identity of the logger installed in debug mode when
// no logger is supplied.
const ConsoleIdentity = "DEFAULT_CONSOLE_LOGGER"

// LoggerSink writes audit records to a ServiceLogger.
type LoggerSink struct {
	log logging.ServiceLogger
}

// NewLoggerSink wraps log. It panics when log is nil.
func NewLoggerSink(log logging.ServiceLogger) *LoggerSink {
	if log == nil {
		panic("fedstore: audit logger sink requires a ServiceLogger")
	}
	return &LoggerSink{log: log}
}

func (s *LoggerSink) LogEvent(source, eventName string, properties Properties) error {
	s.log.Info(eventName, recordFields(source, properties))
	return nil
}

func (s *LoggerSink) LogException(source string, err error, properties Properties) error {
	s.log.Error("audit exception", err, recordFields(source, properties))
	return nil
}

func recordFields(source string, properties Properties) logging.LogFields {
	fields := logging.LogFields{"source": source}
	for k, v := range properties {
		fields[k] = v
	}
	return fields
}

// NewConsoleLogger returns the debug console node. Records are written as
// slog text lines at debug level to w, or to stdout when w is nil.
func NewConsoleLogger(w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	slogger := logging.NewSlogLogger("debug", "text", w)
	return New(ConsoleIdentity, NewLoggerSink(logging.NewSlogServiceLogger(slogger)))
}
