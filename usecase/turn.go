package usecase

import "github.com/satriahrh/voxchat/domain"

// BuildMessages returns [system] ++ history ++ [user] in a new slice. history
// is read, never retained.
func BuildMessages(userText string, history []domain.ChatMessage, systemPrompt string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: userText})
	return messages
}
