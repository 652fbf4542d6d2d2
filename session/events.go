package session

import "fluxvoice/history"

// EventSink receives controller state for display. Implementations must
// not block; the controller calls these from its own goroutines.
type EventSink interface {
	StateChanged(state State)
	AudioLevel(level float64)
	DurationTick(seconds int)
	Transcription(item history.Item)
	TransientError(msg string)
	ErrorCleared()
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) StateChanged(State)         {}
func (NopSink) AudioLevel(float64)         {}
func (NopSink) DurationTick(int)           {}
func (NopSink) Transcription(history.Item) {}
func (NopSink) TransientError(string)      {}
func (NopSink) ErrorCleared()              {}
