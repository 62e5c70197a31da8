// Package config loads the gateway settings from the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted by MODEL_SERVICE, STT_SERVICE and TTS_SERVICE
const (
	ModelServiceOpenAI = "openai"
	ModelServiceOllama = "ollama"
	ModelServiceGemini = "gemini"
	ModelServiceMock   = "mock"

	STTServiceWhisper     = "whisper"
	STTServiceSiliconFlow = "siliconflow"
	STTServiceGoogle      = "google"
	STTServiceMock        = "mock"

	TTSServiceCosyVoice  = "cosyvoice"
	TTSServiceElevenLabs = "elevenlabs"
	TTSServiceMock       = "mock"
)

// Config holds every setting the gateway reads at startup
type Config struct {
	Port   string
	AppEnv string

	ModelService    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OllamaAPIKey    string
	OllamaBaseURL   string
	OllamaModelName string
	GeminiAPIKey    string
	GeminiModel     string

	STTService          string
	SiliconFlowModel    string
	WhisperServerURL    string
	WhisperModelSize    string
	GoogleSTTLanguage   string
	GoogleSTTEncoding   string
	GoogleSTTSampleRate int
	STTFailurePolicy    string

	TTSService string

	DefaultSystemPrompt string
	DefaultModel        string
	CatalogFile         string
	TempAudioDir        string
	MaxUploadSize       string

	CompletionTimeout    time.Duration
	SynthesisTimeout     time.Duration
	TranscriptionTimeout time.Duration

	AuthSecret string
	AuthAPIKey string
}

// Load reads .env when present and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		Port:   r.str("PORT", "8000"),
		AppEnv: r.str("APP_ENV", "production"),

		ModelService:    strings.ToLower(r.str("MODEL_SERVICE", ModelServiceOpenAI)),
		OpenAIAPIKey:    r.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   r.str("OPENAI_API_BASIC", "https://api.siliconflow.cn/v1"),
		OllamaAPIKey:    r.str("OLLAMA_API_KEY", "ollama"),
		OllamaBaseURL:   r.str("OLLAMA_API_BASIC", "http://localhost:11434/v1"),
		OllamaModelName: r.str("OLLAMA_MODEL_NAME", ""),
		GeminiAPIKey:    r.str("GEMINI_API_KEY", ""),
		GeminiModel:     r.str("GEMINI_MODEL", "gemini-2.0-flash"),

		STTService:          strings.ToLower(r.str("STT_SERVICE", STTServiceWhisper)),
		SiliconFlowModel:    r.str("SILICONFLOW_MODEL", "FunAudioLLM/SenseVoiceSmall"),
		WhisperServerURL:    r.str("WHISPER_SERVER_URL", "http://localhost:8080"),
		WhisperModelSize:    r.str("WHISPER_MODEL_SIZE", "base"),
		GoogleSTTLanguage:   r.str("GOOGLE_STT_LANGUAGE", "zh-CN"),
		GoogleSTTEncoding:   r.str("GOOGLE_STT_ENCODING", "LINEAR16"),
		GoogleSTTSampleRate: r.integer("GOOGLE_STT_SAMPLE_RATE", 0),
		STTFailurePolicy:    r.str("STT_FAILURE_POLICY", "continue"),

		TTSService: strings.ToLower(r.str("TTS_SERVICE", TTSServiceCosyVoice)),

		DefaultSystemPrompt: r.str("DEFAULT_SYSTEM_PROMPT", "你是一个友好的AI助手。"),
		DefaultModel:        r.str("DEFAULT_MODEL", "DeepSeek-V3"),
		CatalogFile:         r.str("CATALOG_FILE", ""),
		TempAudioDir:        r.str("TEMP_AUDIO_DIR", "./temp_audio"),
		MaxUploadSize:       r.str("MAX_UPLOAD_SIZE", "25M"),

		CompletionTimeout:    r.duration("COMPLETION_TIMEOUT", 2*time.Minute),
		SynthesisTimeout:     r.duration("SYNTHESIS_TIMEOUT", time.Minute),
		TranscriptionTimeout: r.duration("TRANSCRIPTION_TIMEOUT", time.Minute),

		AuthSecret: r.str("AUTH_SECRET", ""),
		AuthAPIKey: r.str("AUTH_API_KEY", ""),
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks provider selection and the credentials each provider needs
func (c *Config) Validate() error {
	var errs []error

	switch c.ModelService {
	case ModelServiceOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required for MODEL_SERVICE=openai"))
		}
	case ModelServiceOllama:
		if c.OllamaModelName == "" {
			errs = append(errs, fmt.Errorf("OLLAMA_MODEL_NAME is required for MODEL_SERVICE=ollama"))
		}
	case ModelServiceGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("GEMINI_API_KEY is required for MODEL_SERVICE=gemini"))
		}
	case ModelServiceMock:
	default:
		errs = append(errs, fmt.Errorf("unknown MODEL_SERVICE %q", c.ModelService))
	}

	switch c.STTService {
	case STTServiceSiliconFlow:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required for STT_SERVICE=siliconflow"))
		}
	case STTServiceWhisper, STTServiceGoogle, STTServiceMock:
	default:
		errs = append(errs, fmt.Errorf("unknown STT_SERVICE %q", c.STTService))
	}

	switch c.TTSService {
	case TTSServiceCosyVoice:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required for TTS_SERVICE=cosyvoice"))
		}
	case TTSServiceElevenLabs, TTSServiceMock:
	default:
		errs = append(errs, fmt.Errorf("unknown TTS_SERVICE %q", c.TTSService))
	}

	if c.TempAudioDir == "" {
		errs = append(errs, fmt.Errorf("TEMP_AUDIO_DIR must not be empty"))
	}
	if c.AuthSecret != "" && c.AuthAPIKey == "" {
		errs = append(errs, fmt.Errorf("AUTH_API_KEY is required when AUTH_SECRET is set"))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether APP_ENV selects development logging
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// ModelOverride is the provider model id that replaces catalog resolution, if any
func (c *Config) ModelOverride() string {
	switch c.ModelService {
	case ModelServiceOllama:
		return c.OllamaModelName
	case ModelServiceGemini:
		return c.GeminiModel
	}
	return ""
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

// duration accepts Go durations ("90s") and bare seconds ("90")
func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	if d <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s must be positive, got %s", key, v))
		return def
	}
	return d
}
