package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// SessionMetadata is the first JSON line in each session log file.
type SessionMetadata struct {
	SessionID  string `json:"session_id"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	StartedAt  string `json:"started_at"`
}

// LogEntry is a single JSON log line written after the metadata line.
type LogEntry struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Message   string                 `json:"msg"`
	Attrs     map[string]interface{} `json:"attrs,omitempty"`
}

// LogWriter abstracts the destination for session log entries.
type LogWriter interface {
	Write(level, msg string, attrs map[string]interface{})
	Close()
}

// SessionLogWriter writes structured log lines to a per-session .jsonl file.
type SessionLogWriter struct {
	mu        sync.Mutex
	file      *os.File
	logDir    string
	sessionID string
}

// NewSessionLogWriter creates the log directory and session log file,
// writes the metadata first line, and creates an .active marker file.
func NewSessionLogWriter(logDir, sessionID, remoteAddr string) (*SessionLogWriter, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage logger: mkdir %q: %w", logDir, err)
	}

	filePath := filepath.Join(logDir, sessionID+".jsonl")
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("storage logger: create %q: %w", filePath, err)
	}

	meta := SessionMetadata{
		SessionID:  sessionID,
		RemoteAddr: remoteAddr,
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	data, err := sonic.Marshal(meta)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage logger: encode metadata: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return nil, fmt.Errorf("storage logger: write metadata: %w", err)
	}

	activePath := filepath.Join(logDir, sessionID+".active")
	if af, err := os.Create(activePath); err == nil {
		af.Close()
	}

	return &SessionLogWriter{
		file:      f,
		logDir:    logDir,
		sessionID: sessionID,
	}, nil
}

// Write appends a structured log line to the session file.
func (w *SessionLogWriter) Write(level, msg string, attrs map[string]interface{}) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Attrs:     StringifyErrors(attrs),
	}
	data, err := sonic.Marshal(entry)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Write(append(data, '\n'))
	}
}

// Close closes the log file and removes the .active marker.
func (w *SessionLogWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	os.Remove(filepath.Join(w.logDir, w.sessionID+".active"))
}

// StringifyErrors flattens error values to their message; they marshal to {} otherwise.
func StringifyErrors(attrs map[string]interface{}) map[string]interface{} {
	if len(attrs) == 0 {
		return attrs
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		if err, ok := v.(error); ok {
			out[k] = err.Error()
			continue
		}
		out[k] = v
	}
	return out
}

// NewSessionLogger creates a Logger that tees output to both the base logger
// and the provided LogWriter. Child loggers created via With() inherit this.
func NewSessionLogger(baseLogger *Logger, writer LogWriter) *Logger {
	handler := func(level string, msg string, attrs map[string]interface{}) {
		if baseLogger.handlerFunc != nil {
			baseLogger.handlerFunc(level, msg, attrs)
		}
		writer.Write(level, msg, attrs)
	}

	return &Logger{
		handlerFunc: handler,
		attrs:       baseLogger.attrs,
		minLevel:    baseLogger.minLevel,
	}
}

// MultiLogWriter fans every entry out to several writers.
type MultiLogWriter []LogWriter

func (m MultiLogWriter) Write(level, msg string, attrs map[string]interface{}) {
	for _, w := range m {
		w.Write(level, msg, attrs)
	}
}

func (m MultiLogWriter) Close() {
	for _, w := range m {
		w.Close()
	}
}
