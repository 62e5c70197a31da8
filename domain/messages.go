package domain

import (
	"encoding/base64"
)

// Role defines the type of message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatTurnRequest is one user turn together with the context needed to answer it.
// Text is set by the client for text input and by transcription for voice input.
type ChatTurnRequest struct {
	Text                string        `json:"text"`
	History             []ChatMessage `json:"history"`
	SystemPrompt        string        `json:"systemPrompt"`
	Voice               string        `json:"voice,omitempty"`
	Model               string        `json:"model"`
	EnableVoiceResponse bool          `json:"enableVoiceResponse"`
}

// WithDefaults returns a copy of the request with an empty system prompt and model
// replaced by the given defaults. History is shared, not copied; it is never written to.
func (r ChatTurnRequest) WithDefaults(systemPrompt, model string) ChatTurnRequest {
	if r.SystemPrompt == "" {
		r.SystemPrompt = systemPrompt
	}
	if r.Model == "" {
		r.Model = model
	}
	return r
}

// EventType discriminates the events of a streamed turn
type EventType string

const (
	EventRecognition EventType = "recognition"
	EventText        EventType = "text"
	EventAudio       EventType = "audio"
	EventError       EventType = "error"
)

// Event is one element of a turn's outbound sequence. Within a turn the order is
// recognition? -> text* -> audio? and an error event may cut the sequence short.
//
// For EventAudio, Content holds base64-encoded audio. For EventError it holds the
// failure message.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// RecognitionEvent carries the transcribed user text
func RecognitionEvent(text string) Event {
	return Event{Type: EventRecognition, Content: text}
}

// TextEvent carries a text delta, never a cumulative snapshot
func TextEvent(delta string) Event {
	return Event{Type: EventText, Content: delta}
}

// AudioEvent encodes raw audio bytes into an audio event
func AudioEvent(audio []byte) Event {
	return Event{Type: EventAudio, Content: base64.StdEncoding.EncodeToString(audio)}
}

// ErrorEvent carries the message of err
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Content: err.Error()}
}

// TranscriptionResult is what a speech-to-text adapter produces for one audio file.
// Error marks a result whose Text describes a failure rather than recognized speech.
type TranscriptionResult struct {
	Text  string `json:"text"`
	Error bool   `json:"error,omitempty"`
}

// ChatReply is the outcome of a non-streaming turn. Audio is nil when voice
// response was disabled.
type ChatReply struct {
	Text  string
	Audio []byte
}

// VoiceReply is the outcome of a non-streaming voice turn
type VoiceReply struct {
	Recognized string
	ChatReply
}
