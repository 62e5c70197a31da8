package usecase

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/satriahrh/voxchat/domain"
	"github.com/satriahrh/voxchat/domain/repositories"
)

// scriptedLLM replays increments. startErr fails StreamCompletion itself and
// block keeps the stream open until ctx is done.
type scriptedLLM struct {
	mu         sync.Mutex
	increments []repositories.Increment
	startErr   error
	block      bool
	calls      int
	lastReq    repositories.CompletionRequest
	reply      string
	replyErr   error
}

func (l *scriptedLLM) StreamCompletion(ctx context.Context, req repositories.CompletionRequest) (<-chan repositories.Increment, error) {
	l.mu.Lock()
	l.calls++
	l.lastReq = req
	l.mu.Unlock()

	if l.startErr != nil {
		return nil, l.startErr
	}

	ch := make(chan repositories.Increment)
	go func() {
		defer close(ch)
		for _, inc := range l.increments {
			select {
			case ch <- inc:
			case <-ctx.Done():
				return
			}
		}
		if l.block {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func (l *scriptedLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	l.mu.Lock()
	l.calls++
	l.lastReq = req
	l.mu.Unlock()
	return l.reply, l.replyErr
}

func (l *scriptedLLM) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type panickingLLM struct{}

func (panickingLLM) StreamCompletion(ctx context.Context, req repositories.CompletionRequest) (<-chan repositories.Increment, error) {
	panic("malformed increment")
}

func (panickingLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	return "", errors.New("not used")
}

type recordingTTS struct {
	mu    sync.Mutex
	calls []string
	voice string
	err   error
}

func (r *recordingTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, text)
	r.voice = voice
	if r.err != nil {
		return nil, r.err
	}
	return []byte("audio:" + text), nil
}

func (r *recordingTTS) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fileCheckingSTT records whether the audio file existed while it was called
type fileCheckingSTT struct {
	result    domain.TranscriptionResult
	err       error
	calls     int
	path      string
	sawFile   bool
	afterCall func()
}

func (f *fileCheckingSTT) Transcribe(ctx context.Context, audioPath string) (domain.TranscriptionResult, error) {
	f.calls++
	f.path = audioPath
	_, statErr := os.Stat(audioPath)
	f.sawFile = statErr == nil
	if f.afterCall != nil {
		f.afterCall()
	}
	return f.result, f.err
}
