// Package providers builds the upstream adapters selected by configuration
package providers

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/adapters/llm"
	"github.com/satriahrh/voxchat/adapters/stt"
	"github.com/satriahrh/voxchat/adapters/tts"
	"github.com/satriahrh/voxchat/domain/repositories"
	"github.com/satriahrh/voxchat/internal/catalog"
	"github.com/satriahrh/voxchat/internal/config"
)

const openAIMaxRetries = 2

// NewCompletion creates the adapter named by MODEL_SERVICE
func NewCompletion(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	switch cfg.ModelService {
	case config.ModelServiceOllama:
		return newOpenAICompatible(llm.OpenAIConfig{
			APIKey:  cfg.OllamaAPIKey,
			BaseURL: cfg.OllamaBaseURL,
		}, logger)
	case config.ModelServiceGemini:
		a, err := llm.NewGeminiLLM(ctx, llm.GeminiConfig{APIKey: cfg.GeminiAPIKey}, logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.ModelServiceMock:
		logger.Warn("Using mock completion adapter")
		return llm.NewMockLLM(), nil
	default:
		return newOpenAICompatible(llm.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			MaxRetries: openAIMaxRetries,
		}, logger)
	}
}

func newOpenAICompatible(config llm.OpenAIConfig, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	a, err := llm.NewOpenAILLM(config, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewTranscription creates the adapter named by STT_SERVICE. The returned
// func releases provider clients and is never nil.
func NewTranscription(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	noop := func() {}

	switch cfg.STTService {
	case config.STTServiceSiliconFlow:
		a, err := stt.NewSiliconFlowSpeechToText(stt.SiliconFlowConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.SiliconFlowModel,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return a, noop, nil
	case config.STTServiceGoogle:
		a, err := stt.NewGoogleSpeechToText(ctx, stt.GoogleConfig{
			Language:   cfg.GoogleSTTLanguage,
			Encoding:   cfg.GoogleSTTEncoding,
			SampleRate: cfg.GoogleSTTSampleRate,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return a, func() {
			if err := a.Close(); err != nil {
				logger.Warn("Failed to close speech client", zap.Error(err))
			}
		}, nil
	case config.STTServiceMock:
		logger.Warn("Using mock transcription adapter")
		return stt.NewMockSpeechToText(logger), noop, nil
	default:
		a, err := stt.NewWhisperSpeechToText(stt.WhisperConfig{
			ServerURL: cfg.WhisperServerURL,
			Model:     cfg.WhisperModelSize,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return a, noop, nil
	}
}

// NewSynthesis creates the adapter named by TTS_SERVICE together with the
// timbre table clients may pick from
func NewSynthesis(cfg *config.Config, cat *catalog.Catalog, logger *zap.Logger) (repositories.TextToSpeech, *catalog.Voices, error) {
	switch cfg.TTSService {
	case config.TTSServiceElevenLabs:
		elConfig := tts.NewElevenLabsConfigFromEnv()
		elConfig.Voices = cat.ElevenLabsVoices
		a, err := tts.NewElevenLabsTTS(elConfig, logger)
		if err != nil {
			return nil, nil, err
		}
		return a, cat.ElevenLabsVoices, nil
	case config.TTSServiceMock:
		logger.Warn("Using mock synthesis adapter")
		return tts.NewMockTTS(logger), cat.Voices, nil
	default:
		a, err := tts.NewCosyVoiceTTS(tts.CosyVoiceConfig{
			APIKey: cfg.OpenAIAPIKey,
			Voices: cat.Voices,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return a, cat.Voices, nil
	}
}
