package session

import (
	"context"
	"sync"
	"time"

	"fluxvoice/log"
)

const defaultDebounceWindow = 300 * time.Millisecond

// machine is the controller surface the coordinator drives.
type machine interface {
	StartRecording(ctx context.Context)
	StopRecording(ctx context.Context)
	State() State
}

// Coordinator turns raw hotkey signals into start/stop calls. Global
// listeners double-fire and key-repeat; the coordinator absorbs that
// with a debounce window measured from the last processed signal, gates
// press on Idle and release on Recording, and queues a release that
// lands while a start is still in flight so short taps are not lost.
type Coordinator struct {
	ctrl     machine
	debounce time.Duration
	now      func() time.Time

	mu             sync.Mutex
	lastProcessed  time.Time
	starting       bool
	pendingRelease bool
}

func NewCoordinator(ctrl machine, debounce time.Duration) *Coordinator {
	if debounce <= 0 {
		debounce = defaultDebounceWindow
	}
	return &Coordinator{
		ctrl:     ctrl,
		debounce: debounce,
		now:      time.Now,
	}
}

// Press handles a hotkey-pressed signal. Honored only from Idle with no
// start already in flight; everything else is dropped.
func (h *Coordinator) Press(ctx context.Context) {
	h.mu.Lock()
	if h.bouncedLocked() || h.starting || h.ctrl.State() != StateIdle {
		h.mu.Unlock()
		return
	}
	h.lastProcessed = h.now()
	h.starting = true
	h.mu.Unlock()

	go h.runStart(ctx)
}

// Release handles a hotkey-released signal. A release during an
// in-flight start is queued and honored once the state machine reaches
// Recording; otherwise it is honored only from Recording.
func (h *Coordinator) Release(ctx context.Context) {
	h.mu.Lock()
	if h.bouncedLocked() {
		h.mu.Unlock()
		return
	}
	if h.starting {
		h.lastProcessed = h.now()
		h.pendingRelease = true
		h.mu.Unlock()
		return
	}
	if h.ctrl.State() != StateRecording {
		h.mu.Unlock()
		return
	}
	h.lastProcessed = h.now()
	h.mu.Unlock()

	go h.ctrl.StopRecording(ctx)
}

// Toggle handles a level-triggered hotkey that emits a single signal
// per activation: it maps to Press from Idle and Release from
// Recording. Signals landing mid-transition fall through Release's
// queueing so the session still ends up Idle.
func (h *Coordinator) Toggle(ctx context.Context) {
	switch h.ctrl.State() {
	case StateIdle:
		h.Press(ctx)
	default:
		h.Release(ctx)
	}
}

func (h *Coordinator) runStart(ctx context.Context) {
	h.ctrl.StartRecording(ctx)

	h.mu.Lock()
	h.starting = false
	pending := h.pendingRelease
	h.pendingRelease = false
	h.mu.Unlock()

	if !pending {
		return
	}
	// The queued release only fires when the start actually took; a
	// failed start already put us back in Idle.
	if h.ctrl.State() == StateRecording {
		h.ctrl.StopRecording(ctx)
	} else {
		log.Info("dropping queued hotkey release, recording never started")
	}
}

func (h *Coordinator) bouncedLocked() bool {
	return h.now().Sub(h.lastProcessed) < h.debounce
}
