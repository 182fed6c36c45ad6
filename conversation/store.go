// Package conversation holds the ordered turn history of one chat session.
package conversation

import (
	"sync"

	"senaibot/core"
)

// DefaultSystemPrompt is the instruction every conversation starts with.
const DefaultSystemPrompt = "Você é um professor assistente prestativo e conciso"

// Store is the append-only turn sequence of a session. Index 0 always holds
// the single system turn. Reset swaps the whole sequence and bumps the epoch.
type Store struct {
	mu           sync.RWMutex
	systemPrompt string
	turns        []core.Turn
	epoch        uint64
}

// NewStore creates a conversation seeded with the system turn. An empty prompt
// selects DefaultSystemPrompt.
func NewStore(systemPrompt string) *Store {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	s := &Store{systemPrompt: systemPrompt}
	s.turns = s.initialTurns()
	return s
}

func (s *Store) initialTurns() []core.Turn {
	return []core.Turn{{Role: core.RoleSystem, Content: s.systemPrompt}}
}

func (s *Store) AppendUser(text string) {
	s.append(core.RoleUser, text)
}

func (s *Store) AppendAssistant(text string) {
	s.append(core.RoleAssistant, text)
}

func (s *Store) append(role core.Role, text string) {
	s.mu.Lock()
	s.turns = append(s.turns, core.Turn{Role: role, Content: text})
	s.mu.Unlock()
}

// StartExchange appends the user turn and returns the epoch it was stored
// under, for a later AppendAssistantIfCurrent.
func (s *Store) StartExchange(text string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, core.Turn{Role: core.RoleUser, Content: text})
	return s.epoch
}

// AppendAssistantIfCurrent appends the assistant turn only if no reset happened
// since epoch was read. It reports whether the turn was stored.
func (s *Store) AppendAssistantIfCurrent(epoch uint64, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.turns = append(s.turns, core.Turn{Role: core.RoleAssistant, Content: text})
	return true
}

// Reset replaces the history with the single system turn.
func (s *Store) Reset() {
	s.mu.Lock()
	s.turns = s.initialTurns()
	s.epoch++
	s.mu.Unlock()
}

// Epoch counts resets since the store was created.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// VisibleTurns returns the user and assistant turns in chronological order.
// The result is a copy; callers may keep or modify it.
func (s *Store) VisibleTurns() []core.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	visible := make([]core.Turn, 0, len(s.turns)-1)
	for _, t := range s.turns {
		if t.Role == core.RoleSystem {
			continue
		}
		visible = append(visible, t)
	}
	return visible
}

// HistoryForModel returns every turn, system turn first. This is the exact
// message list sent to the language model.
func (s *Store) HistoryForModel() []core.Turn {
	return s.Turns()
}

// Turns returns a copy of the full sequence.
func (s *Store) Turns() []core.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

func (s *Store) SystemPrompt() string {
	return s.systemPrompt
}
