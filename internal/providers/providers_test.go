package providers

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voxchat/adapters/llm"
	"github.com/satriahrh/voxchat/adapters/stt"
	"github.com/satriahrh/voxchat/adapters/tts"
	"github.com/satriahrh/voxchat/internal/catalog"
	"github.com/satriahrh/voxchat/internal/config"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("Failed to build config: %v", err)
	}
	return cfg
}

func TestDefaultProviders(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testConfig(t, map[string]string{"OPENAI_API_KEY": "sk-test"})
	cat := catalog.New(cfg.ModelOverride())

	completion, err := NewCompletion(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := completion.(*llm.OpenAILLM); !ok {
		t.Errorf("Expected OpenAI-compatible adapter, got %T", completion)
	}

	transcription, release, err := NewTranscription(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer release()
	if _, ok := transcription.(*stt.WhisperSpeechToText); !ok {
		t.Errorf("Expected whisper adapter, got %T", transcription)
	}

	synthesis, voices, err := NewSynthesis(cfg, cat, logger)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := synthesis.(*tts.CosyVoiceTTS); !ok {
		t.Errorf("Expected CosyVoice adapter, got %T", synthesis)
	}
	if voices != cat.Voices {
		t.Error("Expected the CosyVoice timbre table")
	}
}

func TestMockProviders(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testConfig(t, map[string]string{
		"MODEL_SERVICE": "mock",
		"STT_SERVICE":   "mock",
		"TTS_SERVICE":   "mock",
	})

	if _, err := NewCompletion(context.Background(), cfg, logger); err != nil {
		t.Errorf("Unexpected completion error: %v", err)
	}
	if _, release, err := NewTranscription(context.Background(), cfg, logger); err != nil {
		t.Errorf("Unexpected transcription error: %v", err)
	} else {
		release()
	}
	if _, _, err := NewSynthesis(cfg, catalog.New(""), logger); err != nil {
		t.Errorf("Unexpected synthesis error: %v", err)
	}
}

func TestSiliconFlowTranscription(t *testing.T) {
	cfg := testConfig(t, map[string]string{"OPENAI_API_KEY": "sk-test", "STT_SERVICE": "siliconflow"})

	a, release, err := NewTranscription(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer release()
	if _, ok := a.(*stt.SiliconFlowSpeechToText); !ok {
		t.Errorf("Expected SiliconFlow adapter, got %T", a)
	}
}

func TestElevenLabsRequiresKey(t *testing.T) {
	t.Setenv("ELEVEN_LABS_API_KEY", "")
	cfg := testConfig(t, map[string]string{"OPENAI_API_KEY": "sk-test", "TTS_SERVICE": "elevenlabs"})

	a, voices, err := NewSynthesis(cfg, catalog.New(""), zaptest.NewLogger(t))
	if err == nil {
		t.Fatal("Expected error without an Eleven Labs API key")
	}
	if a != nil || voices != nil {
		t.Error("Expected nil results on error")
	}
}
