package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

// MockLLM is a local stand-in used when MODEL_SERVICE=mock. It echoes the last
// user message, with a short reasoning preamble for models whose name contains
// "R1" or "QwQ" so the thinking path can be exercised without a provider.
type MockLLM struct{}

// NewMockLLM creates a new mock completion adapter
func NewMockLLM() repositories.LargeLanguageModel {
	return &MockLLM{}
}

// StreamCompletion implements repositories.LargeLanguageModel
func (m *MockLLM) StreamCompletion(ctx context.Context, req repositories.CompletionRequest) (<-chan repositories.Increment, error) {
	var increments []repositories.Increment
	if isReasoningModel(req.Model) {
		increments = append(increments,
			repositories.Reasoning("用户在打招呼，"),
			repositories.Reasoning("我应该友好地回应。"))
	}
	for _, word := range strings.SplitAfter(mockReply(req.Messages), "！") {
		if word != "" {
			increments = append(increments, repositories.Content(word))
		}
	}

	ch := make(chan repositories.Increment)
	go func() {
		defer close(ch)
		for _, inc := range increments {
			select {
			case ch <- inc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Complete implements repositories.LargeLanguageModel
func (m *MockLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	return mockReply(req.Messages), nil
}

func mockReply(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser && messages[i].Content != "" {
			return fmt.Sprintf("你好！你刚才说的是：%s", messages[i].Content)
		}
	}
	return "你好！我是你的AI助手，有什么可以帮你的吗？"
}

func isReasoningModel(model string) bool {
	return strings.Contains(model, "R1") || strings.Contains(model, "QwQ")
}
