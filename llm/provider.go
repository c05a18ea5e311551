// Package llm abstracts "generate a reply from an ordered message
// history" over interchangeable model backends. Two wire protocols are
// supported: a conversational chat protocol (Claude) and a single-call
// generation protocol (Gemini).
package llm

import (
	"context"
	"errors"
)

// Role tags a message's author within a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Provider generates a reply for an ordered message history,
// most-recent-last.
type Provider interface {
	Generate(ctx context.Context, history []Message) (string, error)
}

// ErrEmptyCompletion is returned when a backend answers successfully but
// carries no usable text.
var ErrEmptyCompletion = errors.New("model returned no completion text")
