package hotkey

import (
	"sync"
	"time"
)

type Mode string

const (
	ModePTT    Mode = "ptt"
	ModeToggle Mode = "toggle"
)

// StartEvent signals that a recording should begin.
type StartEvent struct {
	Mode Mode
}

// Hybrid layers tap-to-toggle and hold-to-talk on one key combination.
// A press always starts recording; releasing before the long-press
// threshold arms toggle mode (the next tap stops), holding past it
// means push-to-talk (the release stops).
type Hybrid struct {
	startCh chan StartEvent
	stopCh  chan struct{}

	mu     sync.Mutex
	toggle bool
}

func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan StartEvent, 1),
		stopCh:  make(chan struct{}, 1),
	}
	go h.run(hk, longPress)
	return h
}

// Start signals when to begin recording.
func (h *Hybrid) Start() <-chan StartEvent { return h.startCh }

// StopChan signals when to stop, for both modes.
func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

// IsToggle reports whether the live recording is in toggle mode.
func (h *Hybrid) IsToggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.toggle
}

func (h *Hybrid) setToggle(v bool) {
	h.mu.Lock()
	h.toggle = v
	h.mu.Unlock()
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		// Mode is unknown at press time; the hold duration decides it.
		<-hk.Keydown()
		h.setToggle(false)
		h.startCh <- StartEvent{Mode: ModePTT}

		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			// Held past the threshold: stop on release.
			<-hk.Keyup()
			h.emitStop()
			continue
		case <-hk.Keyup():
			if !timer.Stop() {
				<-timer.C
			}
			h.setToggle(true)
		}

		// Toggled on; the next press+release stops.
		<-hk.Keydown()
		<-hk.Keyup()
		h.emitStop()
	}
}

func (h *Hybrid) emitStop() {
	select {
	case h.stopCh <- struct{}{}:
	default:
	}
}
