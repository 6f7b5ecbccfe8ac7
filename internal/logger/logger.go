package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	defaultLogger = newLogger(os.Stderr, zerolog.InfoLevel)
)

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
		NoColor:    true,
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("[%s]", strings.ToUpper(fmt.Sprint(i)))
		},
	}

	return zerolog.New(output).With().Timestamp().Logger().Level(level)
}

func SetOutput(w io.Writer) {
	defaultLogger = newLogger(w, defaultLogger.GetLevel())
}

// SetLevel accepts zerolog level names ("debug", "info", "warn", "error", "fatal").
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))

	if err != nil {
		return err
	}

	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	defaultLogger = defaultLogger.Level(parsed)
	return nil
}

func formatMessage(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	return fmt.Sprintf("[DEPLOYTRIGGER] %s", msg)
}

func event(level LogLevel) *zerolog.Event {
	switch level {
	case DEBUG:
		return defaultLogger.Debug()
	case INFO:
		return defaultLogger.Info()
	case WARN:
		return defaultLogger.Warn()
	case ERROR:
		return defaultLogger.Error()
	case FATAL:
		return defaultLogger.Fatal()
	}

	return defaultLogger.Info()
}

func Debug(format string, args ...interface{}) {
	event(DEBUG).Msg(formatMessage(format, args...))
}

func Info(format string, args ...interface{}) {
	event(INFO).Msg(formatMessage(format, args...))
}

func Warn(format string, args ...interface{}) {
	event(WARN).Msg(formatMessage(format, args...))
}

func Error(format string, args ...interface{}) {
	event(ERROR).Msg(formatMessage(format, args...))
}

func Fatal(format string, args ...interface{}) {
	event(FATAL).Msg(formatMessage(format, args...))
}
