package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/internal/catalog"
)

func TestCosyVoiceTTS_Synthesize(t *testing.T) {
	var got cosyVoiceRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3mp3data"))
	}))
	defer server.Close()

	tts, err := NewCosyVoiceTTS(CosyVoiceConfig{
		APIKey: "sk-test",
		URL:    server.URL,
		Voices: catalog.NewVoices(catalog.DefaultVoices),
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	audio, err := tts.Synthesize(context.Background(), "你好", "马斯克")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio) != "ID3mp3data" {
		t.Errorf("Unexpected audio %q", audio)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Expected bearer auth, got %q", gotAuth)
	}
	if got.Model != defaultCosyVoiceModel || got.ResponseFormat != "mp3" || got.Input != "你好" {
		t.Errorf("Unexpected payload %+v", got)
	}
	if got.Voice != catalog.DefaultVoices["马斯克"] {
		t.Errorf("Expected resolved voice id, got %s", got.Voice)
	}

	for _, voice := range []string{"", "不存在的音色"} {
		if _, err := tts.Synthesize(context.Background(), "你好", voice); err != nil {
			t.Fatalf("Synthesize(%q) failed: %v", voice, err)
		}
		if got.Voice != defaultCosyVoiceVoice {
			t.Errorf("Expected default voice for %q, got %s", voice, got.Voice)
		}
	}
}

func TestCosyVoiceTTS_NonOKIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	tts, err := NewCosyVoiceTTS(CosyVoiceConfig{APIKey: "sk-test", URL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	_, err = tts.Synthesize(context.Background(), "你好", "")
	if err == nil {
		t.Fatal("Expected error for non-200 status")
	}
	if domain.KindOf(err) != domain.KindProvider {
		t.Errorf("Expected provider error, got %s", domain.KindOf(err))
	}
	if err.Error() != "语音生成失败，状态码：429" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestValidateCosyVoiceConfig(t *testing.T) {
	if err := ValidateCosyVoiceConfig(CosyVoiceConfig{}); err == nil {
		t.Error("Expected error when API key is not set")
	}
}

func TestMockTTS(t *testing.T) {
	tts := NewMockTTS(zaptest.NewLogger(t))
	a, err := tts.Synthesize(context.Background(), "hi", "默认音色")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	b, _ := tts.Synthesize(context.Background(), "hi", "默认音色")
	if string(a) != string(b) {
		t.Error("Expected deterministic output")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tts.Synthesize(ctx, "hi", ""); err == nil {
		t.Error("Expected error on cancelled context")
	}
}
