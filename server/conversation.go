package server

import (
	"context"
	"errors"
	"sync"

	"senaibot/core"
	"senaibot/protocol"
	"senaibot/session"
	wstransport "senaibot/transports/websocket"
)

// conversation drives one session from the messages of one connection.
type conversation struct {
	id         string
	conn       *wstransport.Conn
	newSession SessionFactory
	logger     *core.Logger

	session *session.Session
	wg      sync.WaitGroup
}

func newConversation(id string, conn *wstransport.Conn, newSession SessionFactory, logger *core.Logger) *conversation {
	return &conversation{
		id:         id,
		conn:       conn,
		newSession: newSession,
		logger:     logger.With(map[string]interface{}{"session_id": id}),
	}
}

func (c *conversation) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := c.newSession(ctx, c.id, c.conn, c.conn, c.logger)
	if err != nil {
		c.logger.Error("could not create session", "error", err)
		c.send(protocol.MsgError, protocol.MessagePayload{Message: "session unavailable"})
		return
	}
	c.session = sess
	sess.OnListening(func(message string) {
		c.send(protocol.MsgListening, protocol.MessagePayload{Message: message})
	})

	c.logger.Info("session started")
	c.send(protocol.MsgReady, protocol.ReadyPayload{SessionID: c.id, Turns: sess.VisibleTurns()})

	err = c.conn.ReadLoop(func(env protocol.Envelope) { c.handle(ctx, env) })
	c.logger.Info("session ended", "reason", err)

	cancel()
	c.wg.Wait()
	sess.Abort()
}

func (c *conversation) handle(ctx context.Context, env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgText:
		payload, err := protocol.UnmarshalPayload[protocol.TextPayload](env.Payload)
		if err != nil {
			c.send(protocol.MsgError, protocol.MessagePayload{Message: err.Error()})
			return
		}
		c.interact(func() { c.sendText(ctx, payload.Text) })
	case protocol.MsgVoice:
		c.interact(func() { c.sendVoice(ctx) })
	case protocol.MsgReset:
		c.session.ResetConversation()
		c.send(protocol.MsgHistory, protocol.HistoryPayload{Turns: c.session.VisibleTurns()})
	case protocol.MsgHistory:
		c.send(protocol.MsgHistory, protocol.HistoryPayload{Turns: c.session.VisibleTurns()})
	default:
		c.logger.Warn("unknown message type", "type", string(env.Type))
		c.send(protocol.MsgError, protocol.MessagePayload{Message: "unknown message type: " + string(env.Type)})
	}
}

// interact runs fn off the read loop so audio frames keep flowing while a
// voice exchange records. The session serializes overlapping exchanges.
func (c *conversation) interact(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *conversation) sendText(ctx context.Context, text string) {
	reply, err := c.session.SendText(ctx, text)
	if errors.Is(err, session.ErrEmptyInput) {
		c.send(protocol.MsgError, protocol.MessagePayload{Message: "empty message"})
		return
	}
	c.send(protocol.MsgReply, protocol.TextPayload{Text: reply})
}

func (c *conversation) sendVoice(ctx context.Context) {
	heard, reply := c.session.SendVoice(ctx)
	if heard == "" {
		c.send(protocol.MsgNotice, protocol.MessagePayload{Message: reply})
		return
	}
	c.send(protocol.MsgTranscript, protocol.TextPayload{Text: heard})
	c.send(protocol.MsgReply, protocol.TextPayload{Text: reply})
}

func (c *conversation) send(msgType protocol.MessageType, payload interface{}) {
	if err := c.conn.Send(msgType, payload); err != nil && !errors.Is(err, core.ErrDeviceClosed) {
		c.logger.Debug("send failed", "type", string(msgType), "error", err)
	}
}
