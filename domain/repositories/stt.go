package repositories

import (
	"context"

	"github.com/satriahrh/voxchat/domain"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts the audio file at audioPath to text. A missing file or a
	// provider-side rejection is reported through TranscriptionResult.Error, not
	// through the error return, which is reserved for transport failures.
	Transcribe(ctx context.Context, audioPath string) (domain.TranscriptionResult, error)
}
