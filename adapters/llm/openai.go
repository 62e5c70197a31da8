package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

const (
	defaultOpenAITimeout    = 120 * time.Second
	defaultStreamBufferSize = 32
)

// OpenAIConfig holds configuration for the OpenAI-compatible adapter.
// It serves SiliconFlow, DeepSeek and ollama alike; only BaseURL differs.
type OpenAIConfig struct {
	APIKey     string        // Required unless BaseURL points at a keyless backend
	BaseURL    string        // Optional: OpenAI-compatible API root, e.g. https://api.siliconflow.cn/v1
	Timeout    time.Duration // Optional: per-request HTTP timeout
	MaxRetries int           // Retries on transient failures; zero disables them
}

// OpenAILLM implements LargeLanguageModel over any OpenAI-compatible chat API
type OpenAILLM struct {
	client oai.Client
	logger *zap.Logger
}

var _ repositories.LargeLanguageModel = (*OpenAILLM)(nil)

// ValidateOpenAIConfig validates the OpenAIConfig
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.APIKey == "" && config.BaseURL == "" {
		return fmt.Errorf("API key is required when no base URL is configured")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", config.MaxRetries)
	}
	return nil
}

// NewOpenAILLM creates a new OpenAI-compatible completion adapter
func NewOpenAILLM(config OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultOpenAITimeout
		logger.Info("Using default completion timeout", zap.Duration("timeout", timeout))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAILLM{
		client: oai.NewClient(opts...),
		logger: logger,
	}, nil
}

// StreamCompletion implements repositories.LargeLanguageModel
func (o *OpenAILLM) StreamCompletion(ctx context.Context, req repositories.CompletionRequest) (<-chan repositories.Increment, error) {
	params, err := buildOpenAIParams(req)
	if err != nil {
		return nil, domain.NewProviderError("openai: build params", err)
	}

	o.logger.Info("Starting streamed completion",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)))

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, domain.NewProviderError("openai: start stream", err)
	}

	ch := make(chan repositories.Increment, defaultStreamBufferSize)
	go func() {
		defer close(ch)
		defer stream.Close()

		send := func(inc repositories.Increment) bool {
			select {
			case ch <- inc:
				return true
			case <-ctx.Done():
				return false
			}
		}

		chunks, withChoices := 0, 0
		for stream.Next() {
			chunk := stream.Current()
			chunks++
			if len(chunk.Choices) == 0 {
				continue
			}
			withChoices++
			delta := chunk.Choices[0].Delta
			for _, inc := range decodeDelta(delta.RawJSON(), delta.Content) {
				if !send(inc) {
					o.logger.Warn("Context cancelled while streaming completion", zap.Int("chunks", chunks))
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			o.logger.Error("Completion stream failed", zap.Int("chunks", chunks), zap.Error(err))
			send(repositories.Failed(domain.NewProviderError("openai: stream", err)))
			return
		}

		if withChoices == 0 {
			o.logger.Error("Completion stream carried no choices", zap.Int("chunks", chunks))
			send(repositories.Failed(domain.NewProviderMessage("openai: empty choices in response")))
			return
		}

		o.logger.Debug("Completion stream finished", zap.Int("chunks", chunks))
	}()

	return ch, nil
}

// Complete implements repositories.LargeLanguageModel
func (o *OpenAILLM) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	params, err := buildOpenAIParams(req)
	if err != nil {
		return "", domain.NewProviderError("openai: build params", err)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", domain.NewProviderError("openai: chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewProviderMessage("openai: empty choices in response")
	}

	content := resp.Choices[0].Message.Content
	o.logger.Info("Completion finished",
		zap.String("model", req.Model),
		zap.Int("replyLength", len(content)),
		zap.Int64("totalTokens", resp.Usage.TotalTokens))
	return content, nil
}

// decodeDelta turns one raw chunk delta into tagged increments. Reasoning comes
// from the non-standard reasoning_content field (DeepSeek, SiliconFlow) or
// reasoning (ollama, OpenRouter); it is emitted before content when a chunk
// carries both.
func decodeDelta(raw, content string) []repositories.Increment {
	var reasoning string
	if raw != "" {
		parsed := gjson.Parse(raw)
		reasoning = parsed.Get("reasoning_content").String()
		if reasoning == "" {
			reasoning = parsed.Get("reasoning").String()
		}
		if content == "" {
			content = parsed.Get("content").String()
		}
	}

	var out []repositories.Increment
	if reasoning != "" {
		out = append(out, repositories.Reasoning(reasoning))
	}
	if content != "" {
		out = append(out, repositories.Content(content))
	}
	return out
}

func buildOpenAIParams(req repositories.CompletionRequest) (oai.ChatCompletionNewParams, error) {
	if req.Model == "" {
		return oai.ChatCompletionNewParams{}, fmt.Errorf("model must not be empty")
	}

	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			messages = append(messages, oai.SystemMessage(m.Content))
		case domain.RoleUser:
			messages = append(messages, oai.UserMessage(m.Content))
		case domain.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			return oai.ChatCompletionNewParams{}, fmt.Errorf("unknown message role %q", m.Role)
		}
	}

	return oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}, nil
}
