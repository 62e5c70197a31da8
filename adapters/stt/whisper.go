package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

const defaultWhisperModel = "base"

// WhisperConfig holds configuration for the whisper.cpp server adapter
type WhisperConfig struct {
	ServerURL string        // Required: e.g. http://localhost:8080
	Model     string        // Optional: model size hint, default "base"
	Language  string        // Optional: BCP-47 hint; empty lets whisper detect it
	Timeout   time.Duration // Optional: HTTP client timeout
}

// WhisperSpeechToText implements SpeechToText by posting files to a
// whisper.cpp server's /inference endpoint
type WhisperSpeechToText struct {
	endpoint string
	model    string
	language string
	client   *http.Client
	logger   *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

// ValidateWhisperConfig validates the WhisperConfig
func ValidateWhisperConfig(config WhisperConfig) error {
	if config.ServerURL == "" {
		return fmt.Errorf("whisper server URL is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewWhisperSpeechToText creates a new whisper.cpp transcription adapter
func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if err := ValidateWhisperConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = defaultWhisperModel
		logger.Info("Using default whisper model", zap.String("model", model))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	return &WhisperSpeechToText{
		endpoint: strings.TrimRight(config.ServerURL, "/") + "/inference",
		model:    model,
		language: config.Language,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// Transcribe implements repositories.SpeechToText
func (w *WhisperSpeechToText) Transcribe(ctx context.Context, audioPath string) (domain.TranscriptionResult, error) {
	if result, missing := missingFileResult(audioPath); missing {
		return result, nil
	}

	status, body, err := postAudioForm(ctx, w.client, w.endpoint, "", audioPath,
		formField{"model", w.model},
		formField{"language", w.language},
		formField{"response_format", "json"})
	if err != nil {
		return domain.TranscriptionResult{}, domain.NewProviderError("whisper: transcribe", err)
	}

	if status != http.StatusOK {
		w.logger.Error("Whisper server returned error",
			zap.Int("statusCode", status),
			zap.String("response", string(body)))
		return domain.TranscriptionResult{
			Text:  fmt.Sprintf("Whisper语音识别失败: HTTP %d", status),
			Error: true,
		}, nil
	}

	text := strings.TrimSpace(textFromBody(body))
	w.logger.Info("Transcription finished", zap.String("model", w.model), zap.Int("textLength", len(text)))
	return domain.TranscriptionResult{Text: text}, nil
}
