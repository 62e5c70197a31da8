package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
	"github.com/satriahrh/voxchat/internal/catalog"
)

const (
	defaultCosyVoiceURL    = "https://api.siliconflow.cn/v1/audio/speech"
	defaultCosyVoiceModel  = "FunAudioLLM/CosyVoice2-0.5B"
	defaultCosyVoiceVoice  = "FunAudioLLM/CosyVoice2-0.5B:anna"
	defaultCosyVoiceFormat = "mp3"
	defaultHTTPTimeout     = 60 * time.Second
)

// CosyVoiceConfig holds configuration for the SiliconFlow CosyVoice adapter
type CosyVoiceConfig struct {
	APIKey       string          // Required: bearer token
	URL          string          // Optional: speech endpoint
	Model        string          // Optional: default FunAudioLLM/CosyVoice2-0.5B
	DefaultVoice string          // Optional: voice id used for unknown timbres
	Format       string          // Optional: default mp3
	Timeout      time.Duration   // Optional: HTTP client timeout
	Voices       *catalog.Voices // Optional: timbre name to voice id table
}

// CosyVoiceTTS implements TextToSpeech using SiliconFlow's /v1/audio/speech
type CosyVoiceTTS struct {
	url          string
	apiKey       string
	model        string
	defaultVoice string
	format       string
	voices       *catalog.Voices
	client       *http.Client
	logger       *zap.Logger
}

var _ repositories.TextToSpeech = (*CosyVoiceTTS)(nil)

type cosyVoiceRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// ValidateCosyVoiceConfig validates the CosyVoiceConfig
func ValidateCosyVoiceConfig(config CosyVoiceConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("SiliconFlow API key is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewCosyVoiceTTS creates a new CosyVoice synthesis adapter
func NewCosyVoiceTTS(config CosyVoiceConfig, logger *zap.Logger) (*CosyVoiceTTS, error) {
	if err := ValidateCosyVoiceConfig(config); err != nil {
		return nil, err
	}

	url := config.URL
	if url == "" {
		url = defaultCosyVoiceURL
	}

	model := config.Model
	if model == "" {
		model = defaultCosyVoiceModel
		logger.Info("Using default synthesis model", zap.String("model", model))
	}

	defaultVoice := config.DefaultVoice
	if defaultVoice == "" {
		defaultVoice = defaultCosyVoiceVoice
	}

	format := config.Format
	if format == "" {
		format = defaultCosyVoiceFormat
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	return &CosyVoiceTTS{
		url:          url,
		apiKey:       config.APIKey,
		model:        model,
		defaultVoice: defaultVoice,
		format:       format,
		voices:       config.Voices,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}, nil
}

// Synthesize implements repositories.TextToSpeech
func (c *CosyVoiceTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text cannot be empty")
	}

	voiceID := c.resolveVoice(voice)
	c.logger.Info("Synthesizing speech",
		zap.Int("textLength", len(text)),
		zap.String("voice", voice),
		zap.String("voiceID", voiceID))

	payload, err := json.Marshal(cosyVoiceRequest{
		Model:          c.model,
		Input:          text,
		Voice:          voiceID,
		ResponseFormat: c.format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("cosyvoice: synthesize", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Synthesis request rejected",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		return nil, domain.NewProviderMessage(fmt.Sprintf("语音生成失败，状态码：%d", resp.StatusCode))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError("cosyvoice: read audio", err)
	}

	c.logger.Info("Synthesis finished", zap.Int("bytes", len(audio)))
	return audio, nil
}

func (c *CosyVoiceTTS) resolveVoice(name string) string {
	if id, ok := c.voices.Resolve(name); ok {
		return id
	}
	if name != "" {
		c.logger.Warn("Unknown timbre, using default voice", zap.String("voice", name))
	}
	return c.defaultVoice
}
