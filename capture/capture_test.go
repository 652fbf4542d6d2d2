package capture

import (
	"context"
	"math"
	"testing"

	"fluxvoice/encoder"
)

func TestResampleHalvesLength(t *testing.T) {
	in := make([]int16, 48000)
	out := resample(in, 48000, 16000)
	if len(out) != 16000 {
		t.Errorf("got %d samples, want 16000", len(out))
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []int16{1, 2, 3}
	out := resample(in, 16000, 16000)
	if len(out) != 3 || out[0] != 1 || out[2] != 3 {
		t.Errorf("identity resample changed data: %v", out)
	}
}

func TestResamplePreservesDC(t *testing.T) {
	in := make([]int16, 4800)
	for i := range in {
		in[i] = 1000
	}
	out := resample(in, 48000, 16000)
	for i, s := range out {
		if s != 1000 {
			t.Fatalf("sample %d: got %d, want 1000", i, s)
		}
	}
}

func TestRMSLevelSilenceIsZero(t *testing.T) {
	if got := rmsLevel(make([]int16, 2000)); got != 0 {
		t.Errorf("silence level: got %f", got)
	}
}

func TestRMSLevelClampsToOne(t *testing.T) {
	loud := make([]int16, 2000)
	for i := range loud {
		loud[i] = math.MaxInt16
	}
	if got := rmsLevel(loud); got != 1.0 {
		t.Errorf("full-scale level: got %f, want 1.0", got)
	}
}

func TestRMSLevelEmptyBuffer(t *testing.T) {
	if got := rmsLevel(nil); got != 0 {
		t.Errorf("empty buffer level: got %f", got)
	}
}

func TestFakeRecorderLifecycle(t *testing.T) {
	ctx := context.Background()
	wav := encoder.WAV(make([]int16, 160))
	f := NewFakeRecorder(wav)

	if err := f.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.Begin(ctx); err != ErrAlreadyRecording {
		t.Errorf("second begin: got %v, want ErrAlreadyRecording", err)
	}

	got, err := f.End(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(wav) {
		t.Errorf("got %d bytes, want %d", len(got), len(wav))
	}
	if f.Recording() {
		t.Error("still recording after End")
	}
}

func TestFakeRecorderEndResetsStateOnError(t *testing.T) {
	ctx := context.Background()
	f := NewFakeRecorder(nil)
	f.EndErr = context.DeadlineExceeded

	f.Begin(ctx)
	if _, err := f.End(ctx); err == nil {
		t.Fatal("expected error")
	}
	if f.Recording() {
		t.Error("End must reset state even on failure")
	}
}
