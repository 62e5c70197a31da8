package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of relay message
type MessageType string

// Supported message types
const (
	MessageTypeRecognition MessageType = "recognition"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
)

// Message is the envelope exchanged over the relay
type Message struct {
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	Code      string      `json:"error_code"`
	Message   string      `json:"message"`
}

// ParseMessage decodes an inbound frame. A frame without a type is invalid.
func ParseMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message missing type field")
	}
	return &msg, nil
}

// CreateRecognitionMessage echoes recognized text back to the client
func CreateRecognitionMessage(content string) *Message {
	return &Message{
		Type:      MessageTypeRecognition,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(content string) *Message {
	return &Message{
		Type:      MessageTypePong,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:      MessageTypeError,
		Timestamp: time.Now().Format(time.RFC3339),
		Code:      code,
		Message:   message,
	}
}
