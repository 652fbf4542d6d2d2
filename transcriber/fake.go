package transcriber

import (
	"context"
	"sync"
)

// FakeTranscriber returns a scripted result for tests.
type FakeTranscriber struct {
	mu        sync.Mutex
	Result    Result
	Err       error
	Calls     int
	LastAudio []byte
}

func NewFake(finalText string, err error) *FakeTranscriber {
	return &FakeTranscriber{
		Result: Result{Original: finalText, FinalText: finalText},
		Err:    err,
	}
}

func (f *FakeTranscriber) Transcribe(_ context.Context, wav []byte) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.LastAudio = wav
	if f.Err != nil {
		return Result{}, f.Err
	}
	return f.Result, nil
}
