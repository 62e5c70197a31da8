package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

// ErrEmptyTranscript is reported when transcription yields no text
const ErrEmptyTranscript = "语音识别失败，未能获取文本结果"

const defaultTranscriptionTimeout = time.Minute

// FailurePolicy decides what happens to a transcript that looks like a failure
type FailurePolicy string

const (
	// FailurePolicyContinue logs the suspicious transcript and answers it anyway
	FailurePolicyContinue FailurePolicy = "continue"
	// FailurePolicyReject turns the suspicious transcript into a provider error
	FailurePolicyReject FailurePolicy = "reject"
)

// failureIndicators mark transcripts that describe a recognition failure
var failureIndicators = []string{"识别失败", "暂时不可用", "技术问题"}

// ParseFailurePolicy parses STT_FAILURE_POLICY; empty means continue
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailurePolicyContinue:
		return FailurePolicyContinue, nil
	case FailurePolicyReject:
		return FailurePolicyReject, nil
	default:
		return "", fmt.Errorf("unknown transcript failure policy %q", s)
	}
}

// AudioStore materializes uploads as files for the duration of fn and
// releases them afterwards
type AudioStore interface {
	With(data []byte, fn func(path string) error) error
}

// VoiceConfig holds the voice-turn settings
type VoiceConfig struct {
	FailurePolicy        FailurePolicy
	TranscriptionTimeout time.Duration
}

// VoiceService runs voice turns: transcription followed by a chat turn
type VoiceService struct {
	stt                  repositories.SpeechToText
	store                AudioStore
	chat                 *ChatService
	policy               FailurePolicy
	transcriptionTimeout time.Duration
	logger               *zap.Logger
}

// NewVoiceService creates a new voice service
func NewVoiceService(
	stt repositories.SpeechToText,
	store AudioStore,
	chat *ChatService,
	config VoiceConfig,
	logger *zap.Logger,
) *VoiceService {
	policy := config.FailurePolicy
	if policy == "" {
		policy = FailurePolicyContinue
	}

	timeout := config.TranscriptionTimeout
	if timeout <= 0 {
		timeout = defaultTranscriptionTimeout
		logger.Info("Using default transcription timeout", zap.Duration("timeout", timeout))
	}

	return &VoiceService{
		stt:                  stt,
		store:                store,
		chat:                 chat,
		policy:               policy,
		transcriptionTimeout: timeout,
		logger:               logger,
	}
}

// Transcribe turns an uploaded recording into the user's text. The temporary
// file is released before Transcribe returns.
func (s *VoiceService) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var result domain.TranscriptionResult

	err := s.store.With(audio, func(path string) error {
		transcribeCtx, cancel := context.WithTimeout(ctx, s.transcriptionTimeout)
		defer cancel()

		r, err := s.stt.Transcribe(transcribeCtx, path)
		if err != nil {
			s.logger.Error("Transcription failed", zap.Error(err))
			r = domain.TranscriptionResult{Text: fmt.Sprintf("语音识别失败: %v", err), Error: true}
		}
		result = r
		return nil
	})
	if err != nil {
		return "", err
	}

	return s.applyPolicy(result)
}

func (s *VoiceService) applyPolicy(result domain.TranscriptionResult) (string, error) {
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", domain.NewProviderMessage(ErrEmptyTranscript)
	}

	if !result.Error && !containsFailureIndicator(text) {
		s.logger.Info("Transcription completed", zap.String("text", text))
		return text, nil
	}

	if s.policy == FailurePolicyReject {
		s.logger.Warn("Rejecting failed transcript", zap.String("text", text))
		return "", domain.NewProviderMessage(text)
	}

	s.logger.Warn("Transcript looks like a failure, continuing", zap.String("text", text), zap.Bool("errorFlag", result.Error))
	return text, nil
}

func containsFailureIndicator(text string) bool {
	for _, indicator := range failureIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}

// StreamTurn transcribes the audio, then streams the chat turn prefixed with a
// recognition event. A transcription failure is returned before any
// completion call is made.
func (s *VoiceService) StreamTurn(ctx context.Context, audio []byte, req domain.ChatTurnRequest) (<-chan domain.Event, error) {
	text, err := s.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	req.Text = text
	return CombineRecognition(ctx, text, req.EnableVoiceResponse, s.chat.Stream(ctx, req), s.logger), nil
}

// ReplyTurn is the non-streaming voice turn
func (s *VoiceService) ReplyTurn(ctx context.Context, audio []byte, req domain.ChatTurnRequest) (*domain.VoiceReply, error) {
	text, err := s.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	req.Text = text

	reply, err := s.chat.Reply(ctx, req)
	if err != nil {
		return nil, err
	}
	return &domain.VoiceReply{Recognized: text, ChatReply: *reply}, nil
}

// CombineRecognition emits one recognition event and then forwards events in
// order. Audio events are dropped when enableVoice is false.
func CombineRecognition(ctx context.Context, recognized string, enableVoice bool, events <-chan domain.Event, logger *zap.Logger) <-chan domain.Event {
	out := make(chan domain.Event, eventBufferSize)

	go func() {
		defer close(out)

		send := func(ev domain.Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(domain.RecognitionEvent(recognized)) {
			return
		}

		var reply strings.Builder
		for ev := range events {
			switch ev.Type {
			case domain.EventAudio:
				if !enableVoice {
					continue
				}
			case domain.EventText:
				reply.WriteString(ev.Content)
			}
			if !send(ev) {
				// drain so the producer can exit
				for range events {
				}
				return
			}
		}

		logger.Debug("Voice turn finished", zap.Int("replyLength", reply.Len()))
	}()

	return out
}
