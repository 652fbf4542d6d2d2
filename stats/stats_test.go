package stats

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReportAccumulatesAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	r := New(dir)
	r.ReportUsage(100, 12)
	r.ReportUsage(50, 8)

	got := r.Totals()
	if got.Characters != 150 || got.Seconds != 20 || got.Sessions != 2 {
		t.Errorf("totals: %+v", got)
	}

	// New Reporter over the same dir simulates a restart.
	got = New(dir).Totals()
	if got.Characters != 150 || got.Seconds != 20 || got.Sessions != 2 {
		t.Errorf("totals after restart: %+v", got)
	}
}

func TestMissingFileStartsAtZero(t *testing.T) {
	got := New(t.TempDir()).Totals()
	if got != (Totals{}) {
		t.Errorf("totals: %+v", got)
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	r := New(dir)
	r.ReportUsage(10, 1)
	got := r.Totals()
	if got.Characters != 10 || got.Sessions != 1 {
		t.Errorf("totals: %+v", got)
	}
}

func TestReportWorksWhenDirUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("file, not dir"), 0644); err != nil {
		t.Fatal(err)
	}

	r := New(blocked)
	r.ReportUsage(5, 1)
	if got := r.Totals(); got.Characters != 5 {
		t.Errorf("in-memory totals must survive save failure: %+v", got)
	}
}
