package api

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voxchat/adapters/llm"
	"github.com/satriahrh/voxchat/adapters/stt"
	"github.com/satriahrh/voxchat/adapters/tts"
	"github.com/satriahrh/voxchat/internal/auth"
	"github.com/satriahrh/voxchat/internal/catalog"
	"github.com/satriahrh/voxchat/internal/tempaudio"
	"github.com/satriahrh/voxchat/usecase"
)

func newTestServer(t *testing.T, authenticator *auth.Authenticator) *echo.Echo {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := tempaudio.NewStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	cat := catalog.New("")
	chat := usecase.NewChatService(llm.NewMockLLM(), tts.NewMockTTS(logger), cat.Models, usecase.ChatConfig{
		CompletionTimeout: 5 * time.Second,
		SynthesisTimeout:  5 * time.Second,
	}, logger)
	voice := usecase.NewVoiceService(stt.NewMockSpeechToText(logger), store, chat, usecase.VoiceConfig{
		TranscriptionTimeout: 5 * time.Second,
	}, logger)

	return NewServer(Dependencies{
		Chat:    chat,
		Voice:   voice,
		Catalog: cat,
		Auth:    authenticator,
	}, ServerConfig{}, logger)
}

type sseFrame struct {
	event string
	data  string
}

func parseSSE(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	var cur sseFrame
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.event != "" {
				frames = append(frames, cur)
			}
			cur = sseFrame{}
		}
	}
	return frames
}

func messageOf(t *testing.T, f sseFrame) (string, string) {
	t.Helper()
	var m struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(f.data), &m); err != nil {
		t.Fatalf("Failed to decode frame %q: %v", f.data, err)
	}
	return m.Type, m.Content
}

func voiceForm(t *testing.T, audio []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field: %v", err)
		}
	}
	if audio != nil {
		part, err := w.CreateFormFile("audio", "recording.wav")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(audio)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"service":"voxchat"`) {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("Expected a request id header")
	}
}

func TestListModels(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	var resp CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if resp.Default != catalog.DefaultModelName || len(resp.Names) != len(catalog.DefaultModels) {
		t.Errorf("Unexpected catalog %+v", resp)
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/voices", nil))
	if !strings.Contains(rec.Body.String(), catalog.DefaultVoiceName) {
		t.Errorf("Expected default voice in %s", rec.Body.String())
	}
}

func TestChatText(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, jsonRequest(http.MethodPost, "/api/chat/text", `{"text":"测试","enableVoiceResponse":false}`))
	var resp TextChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !resp.Success || resp.AIResponse != "你好！你刚才说的是：测试" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if resp.AudioResponse != nil {
		t.Error("Expected no audio when voice response is disabled")
	}

	rec = do(e, jsonRequest(http.MethodPost, "/api/chat/text", `{"text":"测试","voice":"马斯克"}`))
	resp = TextChatResponse{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.AudioResponse == nil {
		t.Fatal("Expected audio by default")
	}
	audio, _ := base64.StdEncoding.DecodeString(*resp.AudioResponse)
	if string(audio) != "mock-audio[马斯克]:你好！你刚才说的是：测试" {
		t.Errorf("Unexpected audio %q", audio)
	}
}

func TestChatText_MalformedBody(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, jsonRequest(http.MethodPost, "/api/chat/text", `{"text":`))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected failures to be reported with 200, got %d", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Success || !strings.HasPrefix(resp.Error, errInvalidBody) {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestChatStream_ReasoningModelWithAudio(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, jsonRequest(http.MethodPost, "/api/chat/stream", `{"text":"hi","model":"DeepSeek-R1"}`))
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Errorf("Expected event stream, got %q", ct)
	}

	frames := parseSSE(t, rec.Body.String())
	if len(frames) < 4 {
		t.Fatalf("Expected several frames, got %d: %s", len(frames), rec.Body.String())
	}

	typ, content := messageOf(t, frames[0])
	if typ != "text" || content != usecase.ThinkingAnnouncement {
		t.Errorf("Expected thinking announcement first, got %s %q", typ, content)
	}

	var text strings.Builder
	for _, f := range frames[:len(frames)-1] {
		if f.event != "message" {
			t.Fatalf("Unexpected event %q", f.event)
		}
		typ, content := messageOf(t, f)
		if typ != "text" {
			t.Fatalf("Expected text before audio, got %s", typ)
		}
		text.WriteString(content)
	}
	if !strings.Contains(text.String(), usecase.ThinkingDoneAnnouncement+"你好！") {
		t.Errorf("Expected done announcement before content, got %q", text.String())
	}

	typ, content = messageOf(t, frames[len(frames)-1])
	if typ != "audio" {
		t.Fatalf("Expected audio last, got %s", typ)
	}
	audio, _ := base64.StdEncoding.DecodeString(content)
	if string(audio) != "mock-audio[]:你好！你刚才说的是：hi" {
		t.Errorf("Synthesis must use the reply without reasoning, got %q", audio)
	}
}

func TestChatAudioStream_RecognitionFirst(t *testing.T) {
	e := newTestServer(t, nil)

	body, ct := voiceForm(t, bytes.Repeat([]byte{1}, 2000), map[string]string{
		"history":             `[{"role":"user","content":"早"},{"role":"assistant","content":"早上好"}]`,
		"enableVoiceResponse": "False",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/audio/stream", body)
	req.Header.Set(echo.HeaderContentType, ct)

	frames := parseSSE(t, do(e, req).Body.String())
	if len(frames) == 0 {
		t.Fatal("Expected frames")
	}
	typ, content := messageOf(t, frames[0])
	if typ != "recognition" || content != "你好！" {
		t.Errorf("Expected recognition first, got %s %q", typ, content)
	}
	for _, f := range frames[1:] {
		if typ, _ := messageOf(t, f); typ == "audio" {
			t.Error("Audio must be dropped when voice response is disabled")
		}
	}
}

func TestChatAudioStream_EmptyUpload(t *testing.T) {
	e := newTestServer(t, nil)

	body, ct := voiceForm(t, []byte{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/chat/audio/stream", body)
	req.Header.Set(echo.HeaderContentType, ct)

	frames := parseSSE(t, do(e, req).Body.String())
	if len(frames) != 3 {
		t.Fatalf("Expected the three-frame error sequence, got %+v", frames)
	}
	if frames[0].event != "error" || !strings.Contains(frames[0].data, tempaudio.ErrEmptyUpload) {
		t.Errorf("Unexpected error frame %+v", frames[0])
	}
	if _, content := messageOf(t, frames[1]); content != "发生错误: "+tempaudio.ErrEmptyUpload {
		t.Errorf("Unexpected error text %q", content)
	}
	if frames[2].event != "done" || frames[2].data != `{"content":""}` {
		t.Errorf("Unexpected done frame %+v", frames[2])
	}
}

func TestChatVoice(t *testing.T) {
	e := newTestServer(t, nil)

	body, ct := voiceForm(t, bytes.Repeat([]byte{1}, 6000), map[string]string{"voice": "可爱女声"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.Header.Set(echo.HeaderContentType, ct)

	var resp VoiceChatResponse
	if err := json.Unmarshal(do(e, req).Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !resp.Success || resp.TextInput != "今天天气怎么样？" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if resp.AIResponse != "你好！你刚才说的是：今天天气怎么样？" || resp.AudioResponse == nil {
		t.Errorf("Unexpected reply %+v", resp)
	}
}

func TestChatVoice_Rejections(t *testing.T) {
	e := newTestServer(t, nil)

	cases := []struct {
		name  string
		audio []byte
		form  map[string]string
		want  string
	}{
		{"missing audio", nil, nil, errMissingAudio},
		{"bad history", []byte("RIFF"), map[string]string{"history": "not json"}, "历史记录格式错误"},
	}

	for _, tc := range cases {
		body, ct := voiceForm(t, tc.audio, tc.form)
		req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
		req.Header.Set(echo.HeaderContentType, ct)

		var resp ErrorResponse
		json.Unmarshal(do(e, req).Body.Bytes(), &resp)
		if resp.Success || !strings.Contains(resp.Error, tc.want) {
			t.Errorf("%s: unexpected response %+v", tc.name, resp)
		}
	}
}

func TestAuth(t *testing.T) {
	e := newTestServer(t, auth.NewAuthenticator("secret", "key"))

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	rec = do(e, jsonRequest(http.MethodPost, "/api/auth/token", `{"client_id":"web","api_key":"wrong"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong api key, got %d", rec.Code)
	}

	rec = do(e, jsonRequest(http.MethodPost, "/api/auth/token", `{"client_id":"web","api_key":"key"}`))
	var tok TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil || tok.Token == "" {
		t.Fatalf("Expected token, got %d %s", rec.Code, rec.Body.String())
	}
	if tok.ClientID != "web" {
		t.Errorf("Unexpected client id %q", tok.ClientID)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	if rec := do(e, req); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", rec.Code)
	}
}

func TestTokenEndpointDisabledWithoutSecret(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, jsonRequest(http.MethodPost, "/api/auth/token", `{"client_id":"web","api_key":"key"}`))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when auth is disabled, got %d", rec.Code)
	}
}

func TestTextTurn_RequiresText(t *testing.T) {
	e := newTestServer(t, nil)

	for _, body := range []string{`{}`, `{"text":"   ","model":"QwQ-32B"}`} {
		rec := do(e, jsonRequest(http.MethodPost, "/api/chat/text", body))
		var resp ErrorResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Success || resp.Error != errEmptyText {
			t.Errorf("%s: expected empty text rejection, got %+v", body, resp)
		}

		frames := parseSSE(t, do(e, jsonRequest(http.MethodPost, "/api/chat/stream", body)).Body.String())
		if len(frames) != 3 || frames[0].event != "error" || !strings.Contains(frames[0].data, errEmptyText) {
			t.Errorf("%s: expected error sequence, got %+v", body, frames)
		}
	}
}
