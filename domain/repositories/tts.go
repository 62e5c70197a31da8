package repositories

import "context"

// TextToSpeech abstracts speech synthesis services
type TextToSpeech interface {
	// Synthesize renders text with the named timbre. Unknown or empty timbre names
	// fall back to the provider default voice.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
