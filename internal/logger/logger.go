package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Logger is a leveled wrapper around log.Logger. Loggers derived with Named
// share the underlying writer and minimum level of their parent.
type Logger struct {
	logger   *log.Logger
	minLevel Level
	prefix   string
}

func New(minLevel Level) *Logger {
	return NewWithWriter(os.Stderr, minLevel)
}

func NewWithWriter(w io.Writer, minLevel Level) *Logger {
	return &Logger{
		logger:   log.New(w, "", log.LstdFlags),
		minLevel: minLevel,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard, ERROR+1)
}

// Named returns a child logger that tags every line with [component].
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		logger:   l.logger,
		minLevel: l.minLevel,
		prefix:   l.prefix + "[" + component + "] ",
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.printf(DEBUG, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.printf(INFO, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.printf(WARN, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.printf(ERROR, msg, args...)
}

func (l *Logger) printf(level Level, msg string, args ...any) {
	if l.minLevel > level {
		return
	}
	l.logger.Printf("["+level.String()+"] "+l.prefix+msg, args...)
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q (valid: DEBUG, INFO, WARN, ERROR)", s)
	}
}
