package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

// MockTTS returns a deterministic payload derived from the text and voice
type MockTTS struct {
	logger *zap.Logger
}

// NewMockTTS creates a new mock synthesis adapter
func NewMockTTS(logger *zap.Logger) repositories.TextToSpeech {
	return &MockTTS{logger: logger}
}

// Synthesize implements repositories.TextToSpeech
func (m *MockTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewProviderError("mock: synthesize", err)
	}
	m.logger.Debug("Mock synthesis", zap.String("voice", voice), zap.Int("textLength", len(text)))
	return []byte(fmt.Sprintf("mock-audio[%s]:%s", voice, text)), nil
}
