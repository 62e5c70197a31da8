package repositories

import (
	"context"

	"github.com/satriahrh/voxchat/domain"
)

// LargeLanguageModel abstracts any chat completion provider
type LargeLanguageModel interface {
	// StreamCompletion starts a streamed completion. The returned channel is closed
	// by the implementation when the stream ends, fails, or ctx is cancelled.
	// A failure after the stream started arrives as an Increment with Err set and
	// is always the last value on the channel.
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan Increment, error)
	// Complete waits for the whole reply
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is the ordered message list and the provider-specific model id
type CompletionRequest struct {
	Messages []domain.ChatMessage
	Model    string
}

// IncrementKind tags one unit of streamed completion output
type IncrementKind int

const (
	IncrementEmpty IncrementKind = iota
	IncrementReasoning
	IncrementContent
)

// Increment is one decoded unit of a completion stream
type Increment struct {
	Kind IncrementKind
	Text string
	Err  error
}

// Reasoning builds a reasoning increment
func Reasoning(text string) Increment {
	return Increment{Kind: IncrementReasoning, Text: text}
}

// Content builds a content increment
func Content(text string) Increment {
	return Increment{Kind: IncrementContent, Text: text}
}

// Failed builds the terminal error increment
func Failed(err error) Increment {
	return Increment{Err: err}
}
