package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

const (
	defaultGoogleLanguage = "zh-CN"
	defaultGoogleEncoding = "LINEAR16"
)

// GoogleConfig holds configuration for Google Cloud Speech-to-Text.
// Credentials come from the environment (GOOGLE_APPLICATION_CREDENTIALS).
type GoogleConfig struct {
	Language   string // Optional: default zh-CN
	Encoding   string // Optional: default LINEAR16
	SampleRate int    // Optional: zero lets the service read it from the WAV header
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client    *speech.Client
	recognize recognizeFunc
	config    *speechpb.RecognitionConfig
	logger    *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// ValidateGoogleConfig validates the GoogleConfig
func ValidateGoogleConfig(config GoogleConfig) error {
	if config.SampleRate < 0 {
		return fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.Encoding != "" {
		if _, err := getAudioEncoding(config.Encoding); err != nil {
			return err
		}
	}
	return nil
}

// NewGoogleSpeechToText creates a Google Cloud Speech client. Call Close when done.
func NewGoogleSpeechToText(ctx context.Context, config GoogleConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	recognitionConfig, err := buildRecognitionConfig(config, logger)
	if err != nil {
		return nil, err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleSpeechToText{
		client: client,
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return client.Recognize(ctx, req)
		},
		config: recognitionConfig,
		logger: logger,
	}, nil
}

func buildRecognitionConfig(config GoogleConfig, logger *zap.Logger) (*speechpb.RecognitionConfig, error) {
	if err := ValidateGoogleConfig(config); err != nil {
		return nil, err
	}

	language := config.Language
	if language == "" {
		language = defaultGoogleLanguage
		logger.Info("Using default recognition language", zap.String("language", language))
	}

	encodingName := config.Encoding
	if encodingName == "" {
		encodingName = defaultGoogleEncoding
	}
	encoding, err := getAudioEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	return &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		SampleRateHertz:            int32(config.SampleRate),
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}, nil
}

// Transcribe implements repositories.SpeechToText
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audioPath string) (domain.TranscriptionResult, error) {
	if result, missing := missingFileResult(audioPath); missing {
		return result, nil
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return domain.TranscriptionResult{}, domain.NewProviderError("google: read audio", err)
	}

	resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
		Config: g.config,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		g.logger.Error("Google recognition failed", zap.Error(err))
		return domain.TranscriptionResult{
			Text:  fmt.Sprintf("Google语音识别失败: %v", err),
			Error: true,
		}, nil
	}

	text := joinTranscripts(resp)
	g.logger.Info("Transcription finished",
		zap.String("language", g.config.LanguageCode),
		zap.Int("results", len(resp.GetResults())),
		zap.Int("textLength", len(text)))
	return domain.TranscriptionResult{Text: text}, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// joinTranscripts concatenates the best alternative of every result
func joinTranscripts(resp *speechpb.RecognizeResponse) string {
	var sb strings.Builder
	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) > 0 {
			sb.WriteString(alternatives[0].GetTranscript())
		}
	}
	return strings.TrimSpace(sb.String())
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
