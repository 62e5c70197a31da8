package api

import (
	"time"

	"github.com/satriahrh/voxchat/domain"
)

// TextInput is the JSON body of the text chat endpoints
type TextInput struct {
	Text                string               `json:"text"`
	History             []domain.ChatMessage `json:"history"`
	SystemPrompt        string               `json:"systemPrompt"`
	Voice               string               `json:"voice"`
	Model               string               `json:"model"`
	EnableVoiceResponse *bool                `json:"enableVoiceResponse"`
}

// VoiceChatResponse is returned by POST /api/chat
type VoiceChatResponse struct {
	Success       bool    `json:"success"`
	TextInput     string  `json:"text_input"`
	AIResponse    string  `json:"ai_response"`
	AudioResponse *string `json:"audio_response"`
}

// TextChatResponse is returned by POST /api/chat/text
type TextChatResponse struct {
	Success       bool    `json:"success"`
	AIResponse    string  `json:"ai_response"`
	AudioResponse *string `json:"audio_response,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// TokenRequest represents the request payload for client authentication
type TokenRequest struct {
	ClientID string `json:"client_id"`
	APIKey   string `json:"api_key"`
}

// TokenResponse represents the response payload for client authentication
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// CatalogResponse lists the names a client may pick from
type CatalogResponse struct {
	Default string   `json:"default,omitempty"`
	Names   []string `json:"names"`
}
