package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
	"github.com/satriahrh/voxchat/internal/catalog"
)

const (
	// ThinkingAnnouncement precedes the first reasoning fragment of a turn
	ThinkingAnnouncement = "#### 思考中... \n"
	// ThinkingDoneAnnouncement precedes the first content fragment after reasoning
	ThinkingDoneAnnouncement = "\n #### 思考完成 \n *** \n"

	DefaultSystemPrompt = "你是一个友好的AI助手。"

	defaultCompletionTimeout = 2 * time.Minute
	defaultSynthesisTimeout  = time.Minute
	eventBufferSize          = 16
)

type streamState int

const (
	stateAwaitingFirstToken streamState = iota
	stateInReasoning
	stateInContent
	stateFinished
	stateError
)

func (s streamState) String() string {
	switch s {
	case stateAwaitingFirstToken:
		return "awaiting_first_token"
	case stateInReasoning:
		return "in_reasoning"
	case stateInContent:
		return "in_content"
	case stateFinished:
		return "finished"
	default:
		return "error"
	}
}

// ChatConfig holds the turn defaults and per-call timeouts
type ChatConfig struct {
	SystemPrompt      string
	CompletionTimeout time.Duration
	SynthesisTimeout  time.Duration
}

// ChatService runs text turns against the completion and synthesis adapters
type ChatService struct {
	llm               repositories.LargeLanguageModel
	tts               repositories.TextToSpeech
	models            *catalog.Models
	systemPrompt      string
	completionTimeout time.Duration
	synthesisTimeout  time.Duration
	logger            *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	llm repositories.LargeLanguageModel,
	tts repositories.TextToSpeech,
	models *catalog.Models,
	config ChatConfig,
	logger *zap.Logger,
) *ChatService {
	systemPrompt := config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
		logger.Info("Using default system prompt", zap.String("systemPrompt", systemPrompt))
	}

	completionTimeout := config.CompletionTimeout
	if completionTimeout <= 0 {
		completionTimeout = defaultCompletionTimeout
		logger.Info("Using default completion timeout", zap.Duration("timeout", completionTimeout))
	}

	synthesisTimeout := config.SynthesisTimeout
	if synthesisTimeout <= 0 {
		synthesisTimeout = defaultSynthesisTimeout
		logger.Info("Using default synthesis timeout", zap.Duration("timeout", synthesisTimeout))
	}

	if models == nil {
		models = catalog.NewModels(catalog.DefaultModels, catalog.DefaultModelName, "")
	}

	return &ChatService{
		llm:               llm,
		tts:               tts,
		models:            models,
		systemPrompt:      systemPrompt,
		completionTimeout: completionTimeout,
		synthesisTimeout:  synthesisTimeout,
		logger:            logger,
	}
}

// Stream runs one turn and returns its events. The channel is closed when the
// turn finishes, fails, or ctx is cancelled. A failure yields exactly one
// error event as the last value; cancellation yields none.
func (s *ChatService) Stream(ctx context.Context, req domain.ChatTurnRequest) <-chan domain.Event {
	events := make(chan domain.Event, eventBufferSize)

	go func() {
		defer close(events)

		t := &turnStream{
			ctx:    ctx,
			events: events,
			state:  stateAwaitingFirstToken,
			logger: s.logger,
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Recovered panic in turn stream", zap.Any("panic", r), zap.Stack("stack"))
				t.fail(domain.NewInternalError("stream", fmt.Errorf("panic: %v", r)))
			}
		}()

		s.runStream(t, req.WithDefaults(s.systemPrompt, s.models.DefaultName()))
	}()

	return events
}

func (s *ChatService) runStream(t *turnStream, req domain.ChatTurnRequest) {
	modelID := s.models.Resolve(req.Model)
	s.logger.Info("Starting turn",
		zap.String("model", req.Model),
		zap.String("modelID", modelID),
		zap.Int("historyLength", len(req.History)),
		zap.Bool("voiceResponse", req.EnableVoiceResponse))

	completionCtx, cancel := context.WithTimeout(t.ctx, s.completionTimeout)
	defer cancel()

	increments, err := s.llm.StreamCompletion(completionCtx, repositories.CompletionRequest{
		Messages: BuildMessages(req.Text, req.History, req.SystemPrompt),
		Model:    modelID,
	})
	if err != nil {
		t.fail(providerError("completion", err))
		return
	}

	var reply strings.Builder
	for done := false; !done; {
		select {
		case <-completionCtx.Done():
			s.failOnTimeout(t, completionCtx)
			return
		case inc, ok := <-increments:
			if !ok {
				done = true
				break
			}
			if inc.Err != nil {
				t.fail(providerError("completion", inc.Err))
				return
			}
			if !t.apply(inc, &reply) {
				return
			}
		}
	}

	// adapters may close the stream quietly when the deadline hits
	if completionCtx.Err() != nil {
		s.failOnTimeout(t, completionCtx)
		return
	}
	t.transition(stateFinished)

	if !req.EnableVoiceResponse {
		return
	}
	if reply.Len() == 0 {
		s.logger.Warn("Empty reply, skipping synthesis")
		return
	}

	audio, err := s.synthesize(t.ctx, reply.String(), req.Voice)
	if err != nil {
		t.fail(err)
		return
	}
	t.emit(domain.AudioEvent(audio))
}

// failOnTimeout reports an expired completion deadline. Cancellation by the
// consumer is not a failure.
func (s *ChatService) failOnTimeout(t *turnStream, completionCtx context.Context) {
	if t.ctx.Err() != nil {
		return
	}
	t.fail(domain.NewProviderError("completion",
		fmt.Errorf("timed out after %s: %w", s.completionTimeout, completionCtx.Err())))
}

// Reply runs one turn without streaming
func (s *ChatService) Reply(ctx context.Context, req domain.ChatTurnRequest) (*domain.ChatReply, error) {
	req = req.WithDefaults(s.systemPrompt, s.models.DefaultName())
	modelID := s.models.Resolve(req.Model)

	completionCtx, cancel := context.WithTimeout(ctx, s.completionTimeout)
	defer cancel()

	text, err := s.llm.Complete(completionCtx, repositories.CompletionRequest{
		Messages: BuildMessages(req.Text, req.History, req.SystemPrompt),
		Model:    modelID,
	})
	if err != nil {
		return nil, providerError("completion", err)
	}

	s.logger.Info("Reply generated", zap.String("modelID", modelID), zap.Int("replyLength", len(text)))

	reply := &domain.ChatReply{Text: text}
	if !req.EnableVoiceResponse || text == "" {
		return reply, nil
	}

	reply.Audio, err = s.synthesize(ctx, text, req.Voice)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *ChatService) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	synthCtx, cancel := context.WithTimeout(ctx, s.synthesisTimeout)
	defer cancel()

	audio, err := s.tts.Synthesize(synthCtx, text, voice)
	if err != nil {
		return nil, providerError("synthesis", err)
	}
	s.logger.Info("Synthesis completed", zap.String("voice", voice), zap.Int("audioSize", len(audio)))
	return audio, nil
}

// turnStream is the per-turn state machine. It is owned by one goroutine.
type turnStream struct {
	ctx    context.Context
	events chan<- domain.Event
	state  streamState
	failed bool
	logger *zap.Logger
}

// apply feeds one increment through the state machine. It returns false when
// the consumer has gone away.
func (t *turnStream) apply(inc repositories.Increment, reply *strings.Builder) bool {
	if inc.Text == "" {
		return true
	}

	switch inc.Kind {
	case repositories.IncrementReasoning:
		if t.state == stateAwaitingFirstToken {
			t.transition(stateInReasoning)
			if !t.emit(domain.TextEvent(ThinkingAnnouncement)) {
				return false
			}
		}
		return t.emit(domain.TextEvent(inc.Text))

	case repositories.IncrementContent:
		if t.state == stateInReasoning {
			t.transition(stateInContent)
			if !t.emit(domain.TextEvent(ThinkingDoneAnnouncement)) {
				return false
			}
		} else if t.state == stateAwaitingFirstToken {
			t.transition(stateInContent)
		}
		reply.WriteString(inc.Text)
		return t.emit(domain.TextEvent(inc.Text))
	}
	return true
}

func (t *turnStream) transition(next streamState) {
	t.logger.Debug("Turn state change", zap.Stringer("from", t.state), zap.Stringer("to", next))
	t.state = next
}

func (t *turnStream) emit(ev domain.Event) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.ctx.Done():
		return false
	}
}

// fail emits the single error event of the turn. Nothing is emitted once the
// consumer has cancelled.
func (t *turnStream) fail(err error) {
	if t.failed || t.ctx.Err() != nil {
		return
	}
	t.failed = true
	t.transition(stateError)
	t.logger.Error("Turn failed", zap.Error(err))
	t.emit(domain.ErrorEvent(err))
}

// providerError keeps typed errors as they are and wraps anything else as a
// provider failure of op.
func providerError(op string, err error) error {
	var typed *domain.Error
	if errors.As(err, &typed) {
		return err
	}
	return domain.NewProviderError(op, err)
}
