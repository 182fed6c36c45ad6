// Package turn sequences one user interaction against the conversation store
// and the language model.
package turn

import (
	"context"
	"fmt"

	"senaibot/conversation"
	"senaibot/core"
)

// LLMService completes a conversation. history always starts with the system turn.
type LLMService interface {
	core.IService
	Complete(ctx context.Context, history []core.Turn, opts core.CompletionOptions) (string, error)
}

// SpeechDispatcher speaks text in the background; it must not block.
type SpeechDispatcher interface {
	Dispatch(text string) bool
}

// TurnController applies user input and resets to a conversation store.
type TurnController struct {
	store   *conversation.Store
	service LLMService
	speech  SpeechDispatcher
	config  TurnConfig
	logger  *core.Logger
}

// NewTurnController wires a controller. speech may be nil to disable spoken replies.
func NewTurnController(store *conversation.Store, service LLMService, speech SpeechDispatcher, config TurnConfig, logger *core.Logger) *TurnController {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &TurnController{
		store:   store,
		service: service,
		speech:  speech,
		config:  config.withDefaults(),
		logger:  logger.With(map[string]interface{}{"component": "turn"}),
	}
}

// HandleTextInput appends the user turn, asks the model for a reply and
// appends it. Model failures become an apology turn; nothing is returned as an
// error. If the conversation was reset while the request was in flight the
// reply is returned but neither stored nor spoken.
func (c *TurnController) HandleTextInput(ctx context.Context, text string) string {
	epoch := c.store.StartExchange(text)

	reply, err := c.complete(ctx, c.store.HistoryForModel())
	if err != nil {
		c.logger.Error("completion failed", "error", err, "provider", core.ServiceName(c.service))
		reply = c.config.ApologyPrefix + err.Error()
	}

	if !c.store.AppendAssistantIfCurrent(epoch, reply) {
		c.logger.Info("conversation reset during completion, reply discarded")
		return reply
	}

	if c.speech != nil && !c.config.MuteReplies {
		c.speech.Dispatch(reply)
	}
	return reply
}

// HandleReset drops every turn but the system turn.
func (c *TurnController) HandleReset() {
	c.store.Reset()
	c.logger.Info("conversation reset")
}

func (c *TurnController) complete(ctx context.Context, history []core.Turn) (reply string, err error) {
	if c.config.RequestTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.requestTimeout())
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("llm provider panic: %v", r)
		}
	}()
	return c.service.Complete(ctx, history, c.config.Completion)
}
