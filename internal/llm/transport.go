// Package llm wraps chat-style model APIs behind a retrying client.
package llm

import (
	"context"
	"time"
)

// Chat roles used when composing a prompt.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallOptions carries the per-call settings handed to a transport.
// Nil pointers mean "use the provider default".
type CallOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
	Timeout     time.Duration // bounds a single call; zero means no limit
}

// Transport is the capability that performs the actual model call.
// Implementations may also implement io.Closer; the Client closes them on release.
type Transport interface {
	// Chat sends messages to the model and returns the generated text.
	Chat(ctx context.Context, messages []Message, opts CallOptions) (string, error)
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
