package llm

import (
	"errors"
	"log"
)

// geminiKeyPlaceholder is the value shipped in .env templates; a key
// still set to it means "not configured".
const geminiKeyPlaceholder = "your-gemini-api-key-here"

// ErrNoProvider is returned when neither backend has a usable API key.
var ErrNoProvider = errors.New("no valid API key found: set GEMINI_API_KEY or ANTHROPIC_API_KEY")

// Select picks the backend from the configured API keys. Gemini wins
// whenever its key is present and not the placeholder; otherwise Claude
// is used if its key is non-empty.
func Select(geminiKey, anthropicKey string) (Provider, error) {
	if geminiKey != "" && geminiKey != geminiKeyPlaceholder {
		log.Printf("[LLM] using Gemini (%s)", geminiModel)
		return NewGemini(geminiKey), nil
	}
	if anthropicKey != "" {
		log.Printf("[LLM] using Claude (%s)", claudeModel)
		return NewClaude(anthropicKey), nil
	}
	return nil, ErrNoProvider
}
