package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	defaultTemperature = 0.7
	defaultTopP        = 0.95
	defaultTopK        = 40
	defaultMaxTokens   = 2048
)

// GeminiConfig holds configuration for the Gemini adapter
type GeminiConfig struct {
	APIKey          string  // Required: Google AI API key
	Temperature     float32 // Optional: between 0 and 1
	TopP            float32 // Optional: between 0 and 1
	TopK            float32 // Optional: positive
	MaxOutputTokens int     // Optional
	IncludeThoughts bool    // Ask thinking models to stream their thoughts
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client          *genai.Client
	logger          *zap.Logger
	temperature     float32
	topP            float32
	topK            float32
	maxOutputTokens int
	includeThoughts bool
}

var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}

	if config.TopP != 0 && (config.TopP < 0 || config.TopP > 1) {
		return fmt.Errorf("topP must be between 0 and 1, got %f", config.TopP)
	}

	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}

	return nil
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
		logger.Info("Using default temperature", zap.Float32("temperature", temperature))
	}

	topP := config.TopP
	if topP == 0 {
		topP = defaultTopP
		logger.Info("Using default topP", zap.Float32("topP", topP))
	}

	topK := config.TopK
	if topK == 0 {
		topK = defaultTopK
		logger.Info("Using default topK", zap.Float32("topK", topK))
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
		logger.Info("Using default maxOutputTokens", zap.Int("maxOutputTokens", maxOutputTokens))
	}

	return &GeminiLLM{
		client:          client,
		logger:          logger,
		temperature:     temperature,
		topP:            topP,
		topK:            topK,
		maxOutputTokens: maxOutputTokens,
		includeThoughts: config.IncludeThoughts,
	}, nil
}

// StreamCompletion implements repositories.LargeLanguageModel
func (g *GeminiLLM) StreamCompletion(ctx context.Context, req repositories.CompletionRequest) (<-chan repositories.Increment, error) {
	system, contents := convertToGeminiContents(req.Messages)
	if len(contents) == 0 {
		return nil, domain.NewProviderMessage("gemini: no conversation content to send")
	}
	config := g.generateConfig(system)

	ch := make(chan repositories.Increment, defaultStreamBufferSize)
	go func() {
		defer close(ch)

		withCandidates := 0
		for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				g.logger.Error("Gemini stream failed", zap.Error(err))
				select {
				case ch <- repositories.Failed(domain.NewProviderError("gemini: stream", err)):
				case <-ctx.Done():
				}
				return
			}
			if hasCandidates(resp) {
				withCandidates++
			}
			for _, inc := range responseIncrements(resp) {
				select {
				case ch <- inc:
				case <-ctx.Done():
					g.logger.Warn("Context cancelled while streaming Gemini response")
					return
				}
			}
		}

		if withCandidates == 0 {
			g.logger.Error("Gemini stream carried no candidates")
			select {
			case ch <- repositories.Failed(domain.NewProviderMessage("gemini: no candidates in response")):
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

// Complete implements repositories.LargeLanguageModel
func (g *GeminiLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	system, contents := convertToGeminiContents(req.Messages)
	if len(contents) == 0 {
		return "", domain.NewProviderMessage("gemini: no conversation content to send")
	}

	response, err := g.client.Models.GenerateContent(ctx, req.Model, contents, g.generateConfig(system))
	if err != nil {
		return "", domain.NewProviderError("gemini: generate content", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", domain.NewProviderMessage("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}

	g.logger.Info("Gemini completion finished", zap.Int("replyLength", sb.Len()))
	return sb.String(), nil
}

func (g *GeminiLLM) generateConfig(system string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		TopP:            genai.Ptr(g.topP),
		TopK:            genai.Ptr(g.topK),
		MaxOutputTokens: int32(g.maxOutputTokens),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if g.includeThoughts {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	return config
}

// responseIncrements maps one streamed response onto increments; thought parts
// become reasoning.
func responseIncrements(resp *genai.GenerateContentResponse) []repositories.Increment {
	if !hasCandidates(resp) || resp.Candidates[0].Content == nil {
		return nil
	}

	var out []repositories.Increment
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if part.Thought {
			out = append(out, repositories.Reasoning(part.Text))
		} else {
			out = append(out, repositories.Content(part.Text))
		}
	}
	return out
}

func hasCandidates(resp *genai.GenerateContentResponse) bool {
	return resp != nil && len(resp.Candidates) > 0
}

// convertToGeminiContents splits system messages out into one system
// instruction and maps the rest onto Gemini roles.
func convertToGeminiContents(messages []domain.ChatMessage) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			system = append(system, msg.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n\n"), contents
}
