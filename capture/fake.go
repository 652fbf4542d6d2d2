package capture

import (
	"context"
	"sync"
	"time"
)

// FakeRecorder is a scriptable Recorder for tests.
type FakeRecorder struct {
	mu         sync.Mutex
	BeginErr   error
	EndErr     error
	BeginDelay time.Duration
	EndDelay   time.Duration
	Audio      []byte
	level      float64
	recording  bool
	BeginCalls int
	EndCalls   int
}

func NewFakeRecorder(audio []byte) *FakeRecorder {
	return &FakeRecorder{Audio: audio}
}

func (f *FakeRecorder) Begin(_ context.Context) error {
	if f.BeginDelay > 0 {
		time.Sleep(f.BeginDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BeginCalls++
	if f.BeginErr != nil {
		return f.BeginErr
	}
	if f.recording {
		return ErrAlreadyRecording
	}
	f.recording = true
	return nil
}

func (f *FakeRecorder) Level() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *FakeRecorder) SetLevel(v float64) {
	f.mu.Lock()
	f.level = v
	f.mu.Unlock()
}

func (f *FakeRecorder) End(_ context.Context) ([]byte, error) {
	if f.EndDelay > 0 {
		time.Sleep(f.EndDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EndCalls++
	f.recording = false // state resets even on failure
	if f.EndErr != nil {
		return nil, f.EndErr
	}
	return f.Audio, nil
}

func (f *FakeRecorder) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}
