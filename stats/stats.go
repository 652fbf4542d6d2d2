// Package stats keeps lifetime usage totals for the local user:
// characters transcribed, seconds recorded, session count. Persistence
// is best-effort; a broken stats file never disturbs transcription.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"fluxvoice/log"
)

const fileName = "fluxvoice_usage_stats.json"

type Totals struct {
	Characters int `json:"totalCharacters"`
	Seconds    int `json:"totalSeconds"`
	Sessions   int `json:"totalSessions"`
}

// Reporter accumulates usage totals in memory and mirrors them to disk.
type Reporter struct {
	path string

	mu     sync.Mutex
	loaded bool
	totals Totals
}

func New(dir string) *Reporter {
	return &Reporter{path: filepath.Join(dir, fileName)}
}

// ReportUsage adds one finished session to the totals. Fire-and-forget:
// load and save failures are logged and swallowed.
func (r *Reporter) ReportUsage(chars, durationSeconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	r.totals.Characters += chars
	r.totals.Seconds += durationSeconds
	r.totals.Sessions++
	r.saveLocked()
}

// Totals returns the accumulated usage, loading the stats file on first
// call.
func (r *Reporter) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	return r.totals
}

func (r *Reporter) loadLocked() {
	if r.loaded {
		return
	}
	r.loaded = true
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("read stats file: %v", err)
		}
		return
	}
	var totals Totals
	if err := json.Unmarshal(data, &totals); err != nil {
		log.Warnf("parse stats file, starting fresh: %v", err)
		return
	}
	r.totals = totals
}

func (r *Reporter) saveLocked() {
	data, err := json.MarshalIndent(r.totals, "", "  ")
	if err != nil {
		log.Warnf("encode stats: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		log.Warnf("create stats dir: %v", err)
		return
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		log.Warnf("write stats file: %v", err)
	}
}
