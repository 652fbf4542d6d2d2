package main

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"fluxvoice/beep"
	"fluxvoice/history"
	"fluxvoice/inject"
	"fluxvoice/log"
	"fluxvoice/session"
)

// TUI message types
type StateMsg struct{ State session.State }
type AudioLevelMsg struct{ Level float64 }
type DurationMsg struct{ Seconds int }
type TranscriptionMsg struct{ Item history.Item }
type ErrorMsg struct{ Text string }
type ErrorClearedMsg struct{}
type HistoryMsg struct{ Items []history.Item }

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// appSink routes controller events to the TUI and runs the
// result-delivery side effects: clipboard, auto-insert, audio cues.
type appSink struct {
	autoInsert bool
}

func (s *appSink) StateChanged(state session.State) {
	if state == session.StateProcessing {
		beep.PlayEnd()
	}
	tuiSend(StateMsg{State: state})
}

func (s *appSink) AudioLevel(level float64) {
	tuiSend(AudioLevelMsg{Level: level})
}

func (s *appSink) DurationTick(seconds int) {
	tuiSend(DurationMsg{Seconds: seconds})
}

func (s *appSink) Transcription(item history.Item) {
	log.TranscriptionText(item.FinalText)
	go func() {
		if s.autoInsert {
			if err := inject.Insert(item.FinalText); err != nil {
				log.Warnf("auto-insert failed: %v", err)
			}
			return
		}
		if err := inject.Copy(item.FinalText); err != nil {
			log.Warnf("clipboard copy failed: %v", err)
		}
	}()
	tuiSend(TranscriptionMsg{Item: item})
}

func (s *appSink) TransientError(msg string) {
	beep.PlayError()
	log.Error(msg)
	tuiSend(ErrorMsg{Text: msg})
}

func (s *appSink) ErrorCleared() {
	tuiSend(ErrorClearedMsg{})
}
