package session

import (
	"sync"
	"time"
)

// State is the controller's recording state. Error is transient; the
// controller always finds its way back to Idle.
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Session is the ephemeral per-recording state owned by the controller.
// It exists only between entering Recording and leaving Processing.
type Session struct {
	StartedAt       time.Time
	DurationSeconds int
	AudioLevel      float64
	UploadByteSize  int
}

// activeSession bundles a live recording with its two periodic ticks.
// One session owns one set of handles; cancelTicks is idempotent and
// waits for both tick goroutines to exit.
type activeSession struct {
	startedAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
	ticks    sync.WaitGroup
}

func newActiveSession(startedAt time.Time) *activeSession {
	return &activeSession{
		startedAt: startedAt,
		stop:      make(chan struct{}),
	}
}

// tick runs fn every interval until the session's ticks are cancelled.
func (s *activeSession) tick(interval time.Duration, fn func()) {
	s.ticks.Add(1)
	go func() {
		defer s.ticks.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-t.C:
				fn()
			}
		}
	}()
}

func (s *activeSession) cancelTicks() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.ticks.Wait()
}
