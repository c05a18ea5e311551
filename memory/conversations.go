// Package memory holds bounded per-conversation message history.
//
// Each interaction address owns one ordered sequence of role-tagged
// turns, most-recent-last. Sequences are capped: once a conversation
// exceeds the configured bound, the oldest turns are truncated. State
// is in-memory only and does not survive a process restart.
//
// The store is confined to the single processing goroutine (see the
// oracle package's concurrency model), so it carries no locking.
package memory

import (
	"github.com/becomeliminal/llm-oracle/llm"
	"github.com/becomeliminal/llm-oracle/solana"
)

// DefaultBound is the per-conversation history cap used when no explicit
// bound is configured.
const DefaultBound = 10

// Conversations is the in-memory history store, keyed by interaction
// address.
type Conversations struct {
	bound     int
	histories map[solana.PublicKey][]llm.Message
}

// New creates a store keeping at most bound turns per conversation.
// A non-positive bound falls back to DefaultBound.
func New(bound int) *Conversations {
	if bound <= 0 {
		bound = DefaultBound
	}
	return &Conversations{
		bound:     bound,
		histories: make(map[solana.PublicKey][]llm.Message),
	}
}

// History returns a copy of the conversation's turns in order, or nil if
// the conversation has never been seen.
func (c *Conversations) History(id solana.PublicKey) []llm.Message {
	history, ok := c.histories[id]
	if !ok {
		return nil
	}
	return append([]llm.Message(nil), history...)
}

// Add appends a turn to the conversation, evicting the oldest turns once
// the bound is exceeded.
func (c *Conversations) Add(id solana.PublicKey, content string, role llm.Role) {
	history := append(c.histories[id], llm.Message{Role: role, Content: content})
	if excess := len(history) - c.bound; excess > 0 {
		history = history[excess:]
	}
	c.histories[id] = history
}
