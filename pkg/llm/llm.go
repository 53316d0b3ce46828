// Package llm submits prompts to a text-generation endpoint.
package llm

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

// ErrUnexpectedResponse is returned when a completion is not a single text segment.
var ErrUnexpectedResponse = errors.Base("unexpected response from model")

// 📨 Request is one completion request
type Request struct {
	// Model is the opaque model identifier
	Model string
	// Prompt is sent as a single user message
	Prompt string
	// MaxTokens bounds the response length
	MaxTokens int64
}

// 🤖 Completer is the transformation client boundary.
type Completer interface {
	// Complete submits req and returns the text of the response.
	Complete(ctx context.Context, req Request) (string, error)
}
