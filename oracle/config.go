// Package oracle runs the responder pipeline: reconcile an initial
// snapshot of unanswered interactions with a live change feed, generate
// a reply for each through an LLM backend, and commit the reply back
// on-chain through the requester's callback. A supervisor restarts the
// whole pipeline on unrecoverable failure.
package oracle

import "time"

// Config carries the pipeline's operating bounds. Everything is a named
// value so tests can shrink the retry ceilings.
type Config struct {
	// MemoryBound caps the stored turns per conversation.
	MemoryBound int

	// QueueSize bounds the feed-to-processor queue; the feed pump blocks
	// once it fills (backpressure) rather than dropping events.
	QueueSize int

	// MaxGenerateAttempts bounds LLM calls per interaction.
	MaxGenerateAttempts int

	// MaxSubmitAttempts bounds real transaction submissions per reply.
	// Blockhash-fetch failures do not consume an attempt.
	MaxSubmitAttempts int

	// MaxBlockhashFailures bounds blockhash-fetch failures within one
	// submission, so sustained RPC unavailability cannot loop forever.
	MaxBlockhashFailures int

	// RestartDelay is the pause before the supervisor restarts the
	// pipeline after a propagated error. A cleanly ended feed restarts
	// immediately.
	RestartDelay time.Duration

	// ComputeUnitLimit and ComputeUnitPrice are attached to every
	// callback transaction ahead of the callback instruction.
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
}

// DefaultConfig returns the production bounds.
func DefaultConfig() Config {
	return Config{
		MemoryBound:          10,
		QueueSize:            100,
		MaxGenerateAttempts:  3,
		MaxSubmitAttempts:    5,
		MaxBlockhashFailures: 10,
		RestartDelay:         30 * time.Second,
		ComputeUnitLimit:     300_000,
		ComputeUnitPrice:     1_000_000,
	}
}
