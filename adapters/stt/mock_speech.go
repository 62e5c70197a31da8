package stt

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

// MockSpeechToText returns canned transcripts picked by upload size
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{logger: logger}
}

// Transcribe implements repositories.SpeechToText
func (m *MockSpeechToText) Transcribe(ctx context.Context, audioPath string) (domain.TranscriptionResult, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return domain.TranscriptionResult{Text: missingFileText, Error: true}, nil
	}

	size := info.Size()
	m.logger.Info("Mock transcription", zap.String("path", audioPath), zap.Int64("size", size))

	var text string
	switch {
	case size > 10000:
		text = "你好，请给我讲一个关于太空探索的小故事。"
	case size > 5000:
		text = "今天天气怎么样？"
	case size > 1000:
		text = "你好！"
	default:
		text = "嗨"
	}
	return domain.TranscriptionResult{Text: text}, nil
}
