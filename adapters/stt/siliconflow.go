package stt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

const (
	defaultSiliconFlowURL   = "https://api.siliconflow.cn/v1/audio/transcriptions"
	defaultSiliconFlowModel = "FunAudioLLM/SenseVoiceSmall"
	defaultHTTPTimeout      = 60 * time.Second
)

// SiliconFlowConfig holds configuration for the SiliconFlow transcription adapter
type SiliconFlowConfig struct {
	APIKey  string        // Required: bearer token
	URL     string        // Optional: transcription endpoint
	Model   string        // Optional: default FunAudioLLM/SenseVoiceSmall
	Timeout time.Duration // Optional: HTTP client timeout
}

// SiliconFlowSpeechToText implements SpeechToText against SiliconFlow's
// /v1/audio/transcriptions endpoint
type SiliconFlowSpeechToText struct {
	url    string
	apiKey string
	model  string
	client *http.Client
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*SiliconFlowSpeechToText)(nil)

// ValidateSiliconFlowConfig validates the SiliconFlowConfig
func ValidateSiliconFlowConfig(config SiliconFlowConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("SiliconFlow API key is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewSiliconFlowSpeechToText creates a new SiliconFlow transcription adapter
func NewSiliconFlowSpeechToText(config SiliconFlowConfig, logger *zap.Logger) (*SiliconFlowSpeechToText, error) {
	if err := ValidateSiliconFlowConfig(config); err != nil {
		return nil, err
	}

	url := config.URL
	if url == "" {
		url = defaultSiliconFlowURL
	}

	model := config.Model
	if model == "" {
		model = defaultSiliconFlowModel
		logger.Info("Using default transcription model", zap.String("model", model))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	return &SiliconFlowSpeechToText{
		url:    url,
		apiKey: config.APIKey,
		model:  model,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Transcribe implements repositories.SpeechToText
func (s *SiliconFlowSpeechToText) Transcribe(ctx context.Context, audioPath string) (domain.TranscriptionResult, error) {
	if result, missing := missingFileResult(audioPath); missing {
		return result, nil
	}

	status, body, err := postAudioForm(ctx, s.client, s.url, s.apiKey, audioPath, formField{"model", s.model})
	if err != nil {
		return domain.TranscriptionResult{}, domain.NewProviderError("siliconflow: transcribe", err)
	}

	if status != http.StatusOK {
		msg := fmt.Sprintf("SiliconFlow API请求失败: %d - %s", status, string(body))
		s.logger.Error("Transcription request rejected",
			zap.Int("statusCode", status),
			zap.String("response", string(body)))
		return domain.TranscriptionResult{Text: msg, Error: true}, nil
	}

	text := textFromBody(body)
	s.logger.Info("Transcription finished", zap.String("model", s.model), zap.Int("textLength", len(text)))
	return domain.TranscriptionResult{Text: text}, nil
}
