package websocket

import (
	"time"

	"senaibot/core"
	"senaibot/protocol"
)

// LogForwarder implements core.LogWriter by sending session log entries to
// the browser as log messages. Send failures are dropped.
type LogForwarder struct {
	conn      *Conn
	sessionID string
}

func NewLogForwarder(conn *Conn, sessionID string) *LogForwarder {
	return &LogForwarder{conn: conn, sessionID: sessionID}
}

func (w *LogForwarder) Write(level, msg string, attrs map[string]interface{}) {
	_ = w.conn.Send(protocol.MsgLog, protocol.LogPayload{
		SessionID: w.sessionID,
		Entry: core.LogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Level:     level,
			Message:   msg,
			Attrs:     core.StringifyErrors(attrs),
		},
	})
}

func (w *LogForwarder) Close() {}
