package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes leveled key/value records: Info("Lot saved", "lot_id", 7).
type Logger struct {
	base zerolog.Logger
	file io.Closer
}

// NewLogger logs to the console and, when logPath is set, to a rotating
// JSON file at logPath.
func NewLogger(logPath, logLevel string) *Logger {
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	if logPath == "" {
		return newLogger(console, logLevel, nil)
	}

	file := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	return newLogger(zerolog.MultiLevelWriter(console, file), logLevel, file)
}

// NewLoggerTo writes JSON records to w.
func NewLoggerTo(w io.Writer, logLevel string) *Logger {
	return newLogger(w, logLevel, nil)
}

func newLogger(w io.Writer, logLevel string, file io.Closer) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(w).
		With().
		Timestamp().
		Str("service", "vinwreck-parser").
		Logger().
		Level(ParseLevel(logLevel))
	return &Logger{base: base, file: file}
}

// ParseLevel falls back to info for empty or unknown levels.
func ParseLevel(value string) zerolog.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(value)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.write(l.base.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.write(l.base.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.write(l.base.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.write(l.base.Error(), msg, fields)
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) write(event *zerolog.Event, msg string, fields []interface{}) {
	if event == nil {
		return
	}
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if i+1 >= len(fields) {
			event = event.Interface("_extra", fields[i])
			break
		}
		switch v := fields[i+1].(type) {
		case error:
			event = event.AnErr(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(msg)
}
