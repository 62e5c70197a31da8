package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

func TestMockLLM_StreamReasoningModel(t *testing.T) {
	ch, err := NewMockLLM().StreamCompletion(context.Background(), repositories.CompletionRequest{
		Model:    "deepseek-ai/DeepSeek-R1",
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var reasoning, content strings.Builder
	for inc := range ch {
		switch inc.Kind {
		case repositories.IncrementReasoning:
			reasoning.WriteString(inc.Text)
		case repositories.IncrementContent:
			content.WriteString(inc.Text)
		}
	}

	if reasoning.Len() == 0 {
		t.Error("Expected reasoning for R1 model")
	}
	if !strings.Contains(content.String(), "Hello") {
		t.Errorf("Expected reply to echo input, got %q", content.String())
	}
}
