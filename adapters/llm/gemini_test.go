package llm

import (
	"testing"

	"google.golang.org/genai"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

func TestValidateGeminiConfig(t *testing.T) {
	if err := ValidateGeminiConfig(GeminiConfig{}); err == nil {
		t.Error("Expected error when API key is not set")
	}
	if err := ValidateGeminiConfig(GeminiConfig{APIKey: "k", Temperature: 1.5}); err == nil {
		t.Error("Expected error for temperature out of range")
	}
	if err := ValidateGeminiConfig(GeminiConfig{APIKey: "k", TopK: -1}); err == nil {
		t.Error("Expected error for negative topK")
	}
	if err := ValidateGeminiConfig(GeminiConfig{APIKey: "k"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestConvertToGeminiContents(t *testing.T) {
	system, contents := convertToGeminiContents([]domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "你是一个友好的AI助手。"},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
		{Role: domain.RoleUser, Content: "again"},
	})

	if system != "你是一个友好的AI助手。" {
		t.Errorf("Unexpected system instruction: %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("Expected assistant mapped to model role, got %s", contents[1].Role)
	}
	if contents[2].Parts[0].Text != "again" {
		t.Errorf("Expected order preserved, got %q", contents[2].Parts[0].Text)
	}
}

func TestResponseIncrements(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: ""},
				{Text: "answer"},
			}},
		}},
	}

	got := responseIncrements(resp)
	if len(got) != 2 {
		t.Fatalf("Expected 2 increments, got %d", len(got))
	}
	if got[0].Kind != repositories.IncrementReasoning || got[1].Kind != repositories.IncrementContent {
		t.Errorf("Unexpected kinds: %+v", got)
	}

	if responseIncrements(&genai.GenerateContentResponse{}) != nil {
		t.Error("Expected no increments without candidates")
	}
}

func TestHasCandidates(t *testing.T) {
	if hasCandidates(nil) || hasCandidates(&genai.GenerateContentResponse{}) {
		t.Error("Expected responses without candidates to be reported as empty")
	}
	if !hasCandidates(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}) {
		t.Error("Expected a candidate to be detected")
	}
}
