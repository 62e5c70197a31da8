package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/internal/auth"
	"github.com/satriahrh/voxchat/internal/sse"
	"github.com/satriahrh/voxchat/internal/websocket"
)

const (
	errMissingAudio  = "未上传音频文件"
	errInvalidBody   = "请求格式错误"
	errEmptyText     = "文本内容不能为空"
	errInvalidCreds  = "Invalid client credentials"
	anonymousClient  = "anonymous"
	formHistory      = "history"
	formSystemPrompt = "systemPrompt"
	formVoice        = "voice"
	formModel        = "model"
	formEnableVoice  = "enableVoiceResponse"
)

type handler struct {
	deps   Dependencies
	logger *zap.Logger
}

func (h *handler) listModels(c echo.Context) error {
	models := h.deps.Catalog.Models
	return c.JSON(http.StatusOK, CatalogResponse{
		Default: models.DefaultName(),
		Names:   models.Names(),
	})
}

func (h *handler) listVoices(c echo.Context) error {
	return c.JSON(http.StatusOK, CatalogResponse{Names: h.deps.Voices.Names()})
}

// chatVoice handles POST /api/chat
func (h *handler) chatVoice(c echo.Context) error {
	audio, req, err := h.bindVoiceTurn(c)
	if err != nil {
		return h.failJSON(c, err)
	}

	reply, err := h.deps.Voice.ReplyTurn(c.Request().Context(), audio, req)
	if err != nil {
		return h.failJSON(c, err)
	}

	return c.JSON(http.StatusOK, VoiceChatResponse{
		Success:       true,
		TextInput:     reply.Recognized,
		AIResponse:    reply.Text,
		AudioResponse: encodeAudio(reply.Audio),
	})
}

// chatText handles POST /api/chat/text
func (h *handler) chatText(c echo.Context) error {
	req, err := h.bindTextTurn(c)
	if err != nil {
		return h.failJSON(c, err)
	}

	reply, err := h.deps.Chat.Reply(c.Request().Context(), req)
	if err != nil {
		return h.failJSON(c, err)
	}

	return c.JSON(http.StatusOK, TextChatResponse{
		Success:       true,
		AIResponse:    reply.Text,
		AudioResponse: encodeAudio(reply.Audio),
	})
}

// chatStream handles POST /api/chat/stream
func (h *handler) chatStream(c echo.Context) error {
	sw, err := h.startStream(c)
	if err != nil {
		return err
	}

	req, err := h.bindTextTurn(c)
	if err != nil {
		return h.failStream(sw, err)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	return h.relayStream(sw, h.deps.Chat.Stream(ctx, req))
}

// chatAudioStream handles POST /api/chat/audio/stream
func (h *handler) chatAudioStream(c echo.Context) error {
	sw, err := h.startStream(c)
	if err != nil {
		return err
	}

	audio, req, err := h.bindVoiceTurn(c)
	if err != nil {
		return h.failStream(sw, err)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, err := h.deps.Voice.StreamTurn(ctx, audio, req)
	if err != nil {
		return h.failStream(sw, err)
	}
	return h.relayStream(sw, events)
}

func (h *handler) issueToken(c echo.Context) error {
	if !h.deps.Auth.Enabled() {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Authentication is disabled"})
	}

	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidBody})
	}
	if req.ClientID == "" || req.APIKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "client_id and api_key are required"})
	}

	token, expiresAt, err := h.deps.Auth.GenerateClientToken(req.ClientID, req.APIKey)
	if errors.Is(err, auth.ErrInvalidAPIKey) {
		h.logger.Warn("Client authentication failed", zap.String("clientID", req.ClientID))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: errInvalidCreds})
	}
	if err != nil {
		h.logger.Error("Failed to generate client token", zap.String("clientID", req.ClientID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate authentication token"})
	}

	h.logger.Info("Client authenticated", zap.String("clientID", req.ClientID))
	return c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		ClientID:  req.ClientID,
	})
}

// relay handles GET /ws
func (h *handler) relay(c echo.Context) error {
	clientID := anonymousClient
	if claims, ok := c.Get(auth.ClaimsContextKey).(*auth.JWTClaims); ok && claims.ClientID != "" {
		clientID = claims.ClientID
	}
	return websocket.HandleWebSocket(h.deps.Hub, c, clientID, h.logger)
}

func (h *handler) bindTextTurn(c echo.Context) (domain.ChatTurnRequest, error) {
	var in TextInput
	if err := c.Bind(&in); err != nil {
		h.logger.Error("Failed to bind text turn", zap.Error(err))
		return domain.ChatTurnRequest{}, domain.NewValidationError(fmt.Sprintf("%s: %v", errInvalidBody, err))
	}
	if strings.TrimSpace(in.Text) == "" {
		return domain.ChatTurnRequest{}, domain.NewValidationError(errEmptyText)
	}

	enableVoice := true
	if in.EnableVoiceResponse != nil {
		enableVoice = *in.EnableVoiceResponse
	}

	return domain.ChatTurnRequest{
		Text:                in.Text,
		History:             in.History,
		SystemPrompt:        in.SystemPrompt,
		Voice:               in.Voice,
		Model:               in.Model,
		EnableVoiceResponse: enableVoice,
	}, nil
}

// bindVoiceTurn reads the multipart upload. The history is parsed before the
// audio is read so malformed requests never reach transcription.
func (h *handler) bindVoiceTurn(c echo.Context) ([]byte, domain.ChatTurnRequest, error) {
	var history []domain.ChatMessage
	if raw := c.FormValue(formHistory); raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			return nil, domain.ChatTurnRequest{}, domain.NewValidationError(fmt.Sprintf("历史记录格式错误: %v", err))
		}
	}

	enableVoice := true
	if raw := c.FormValue(formEnableVoice); raw != "" {
		enableVoice = strings.EqualFold(strings.TrimSpace(raw), "true")
	}

	req := domain.ChatTurnRequest{
		History:             history,
		SystemPrompt:        c.FormValue(formSystemPrompt),
		Voice:               c.FormValue(formVoice),
		Model:               c.FormValue(formModel),
		EnableVoiceResponse: enableVoice,
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		return nil, req, domain.NewValidationError(errMissingAudio)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, req, domain.NewResourceError("读取音频文件失败", err)
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		return nil, req, domain.NewResourceError("读取音频文件失败", err)
	}

	h.logger.Info("Received voice turn",
		zap.String("filename", fh.Filename),
		zap.Int("audioSize", len(audio)),
		zap.Int("historyLength", len(history)),
		zap.String("model", req.Model),
		zap.String("voice", req.Voice),
		zap.Bool("voiceResponse", enableVoice))

	return audio, req, nil
}

func (h *handler) startStream(c echo.Context) (*sse.Writer, error) {
	sw, err := sse.New(c.Response())
	if err != nil {
		h.logger.Error("Streaming not supported", zap.Error(err))
		return nil, c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	sw.Start()
	return sw, nil
}

func (h *handler) relayStream(sw *sse.Writer, events <-chan domain.Event) error {
	if err := sw.Relay(events); err != nil {
		// the deferred cancel stops the producer
		h.logger.Warn("Client went away during stream", zap.Error(err))
	}
	return nil
}

func (h *handler) failStream(sw *sse.Writer, err error) error {
	h.logger.Warn("Turn rejected", zap.Stringer("kind", domain.KindOf(err)), zap.Error(err))
	if werr := sw.Fail(err.Error()); werr != nil {
		h.logger.Warn("Failed to write error sequence", zap.Error(werr))
	}
	return nil
}

// failJSON writes the non-streaming failure shape. Failures are reported in
// the body with status 200.
func (h *handler) failJSON(c echo.Context, err error) error {
	h.logger.Warn("Turn failed", zap.Stringer("kind", domain.KindOf(err)), zap.Error(err))
	return c.JSON(http.StatusOK, ErrorResponse{Error: err.Error()})
}

func encodeAudio(audio []byte) *string {
	if audio == nil {
		return nil
	}
	s := base64.StdEncoding.EncodeToString(audio)
	return &s
}
