package core

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var loggerInstance Logger = *NewDevelopmentLogger() // default to development logger

// SetLogger sets the global logger instance
func SetLogger(logger Logger) {
	loggerInstance = logger
}

// GetLogger retrieves the global logger instance
func GetLogger() *Logger {
	return &loggerInstance
}

// LogLevel orders log records by severity.
type LogLevel int

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]LogLevel{
	"TRACE": LevelTrace,
	"DEBUG": LevelDebug,
	"INFO":  LevelInfo,
	"WARN":  LevelWarn,
	"ERROR": LevelError,
}

// ParseLogLevel maps a level name (case-insensitive) to a LogLevel.
// Unknown names fall back to LevelInfo.
func ParseLogLevel(name string) LogLevel {
	if lvl, ok := levelNames[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return LevelInfo
}

type Logger struct {
	handlerFunc func(level string, msg string, attrs map[string]interface{})
	attrs       map[string]interface{}
	minLevel    LogLevel
}

func NewLogger(handler func(level string, msg string, attrs map[string]interface{})) *Logger {
	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]interface{}),
		minLevel:    LevelDebug,
	}
}

// NewDevelopmentLogger creates a new development logger with pretty console output
func NewDevelopmentLogger() *Logger {
	return NewLogger(consoleHandler(os.Stdout))
}

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *Logger {
	return NewLogger(func(string, string, map[string]interface{}) {})
}

func consoleHandler(out io.Writer) func(level string, msg string, attrs map[string]interface{}) {
	return func(level string, msg string, attrs map[string]interface{}) {
		timestamp := time.Now().Format(time.RFC3339)
		var b strings.Builder
		fmt.Fprintf(&b, "%s [%s] %s", timestamp, level, msg)
		if len(attrs) > 0 {
			keys := make([]string, 0, len(attrs))
			for k := range attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString(" |")
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, attrs[k])
			}
		}
		b.WriteByte('\n')
		if level == "ERROR" {
			fmt.Fprint(os.Stderr, b.String())
			return
		}
		fmt.Fprint(out, b.String())
	}
}

// NewJSONLogger writes one JSON object per record through zerolog.
func NewJSONLogger(out io.Writer) *Logger {
	zl := zerolog.New(out).With().Timestamp().Logger()
	return NewLogger(func(level string, msg string, attrs map[string]interface{}) {
		var event *zerolog.Event
		switch level {
		case "TRACE":
			event = zl.Trace()
		case "DEBUG":
			event = zl.Debug()
		case "WARN":
			event = zl.Warn()
		case "ERROR":
			event = zl.Error()
		default:
			event = zl.Info()
		}
		for k, v := range attrs {
			if err, ok := v.(error); ok {
				event = event.AnErr(k, err)
				continue
			}
			event = event.Interface(k, v)
		}
		event.Msg(msg)
	})
}

// WithLevel returns a copy of the logger that drops records below lvl.
func (l *Logger) WithLevel(lvl LogLevel) *Logger {
	return &Logger{
		handlerFunc: l.handlerFunc,
		attrs:       l.attrs,
		minLevel:    lvl,
	}
}

func (l *Logger) log(level LogLevel, name string, msg string, args ...interface{}) {
	if l.handlerFunc == nil || level < l.minLevel {
		return
	}
	if len(args) > 0 {
		// slog-style key-value pairs are merged into the attributes.
		if isKeyValuePairs(args) {
			attrs := make(map[string]interface{}, len(l.attrs)+len(args)/2)
			for k, v := range l.attrs {
				attrs[k] = v
			}
			for i := 0; i < len(args)-1; i += 2 {
				key, _ := args[i].(string)
				attrs[key] = args[i+1]
			}
			l.handlerFunc(name, msg, attrs)
			return
		}
		msg = fmt.Sprintf(msg, args...)
	}
	l.handlerFunc(name, msg, l.attrs)
}

// isKeyValuePairs returns true if args look like slog-style key-value pairs:
// even count and every key (even index) is a string.
func isKeyValuePairs(args []interface{}) bool {
	if len(args)%2 != 0 {
		return false
	}
	for i := 0; i < len(args); i += 2 {
		if _, ok := args[i].(string); !ok {
			return false
		}
	}
	return true
}

func (l *Logger) Trace(msg string, args ...interface{}) {
	l.log(LevelTrace, "TRACE", msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, "DEBUG", msg, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, "DEBUG", format, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, "INFO", msg, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, "INFO", format, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, "WARN", msg, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, "WARN", format, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, "ERROR", msg, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, "ERROR", format, args...)
}

func (l *Logger) With(attrs map[string]interface{}) *Logger {
	combinedAttrs := make(map[string]interface{}, len(l.attrs)+len(attrs))
	for k, v := range l.attrs {
		combinedAttrs[k] = v
	}
	for k, v := range attrs {
		combinedAttrs[k] = v
	}
	return &Logger{
		handlerFunc: l.handlerFunc,
		attrs:       combinedAttrs,
		minLevel:    l.minLevel,
	}
}
