package transcriber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fluxvoice/encoder"
)

func testWAV() []byte {
	return encoder.WAV(make([]int16, encoder.SampleRate/10))
}

func newTestAzure(speechURL, polishURL string, cfg Config) *Azure {
	if cfg.SpeechKey == "" {
		cfg.SpeechKey = "test-key"
	}
	a := NewAzure(cfg)
	a.speechURL = speechURL
	if polishURL != "" {
		a.polishURL = polishURL
	}
	a.retryDelay = time.Millisecond
	return a
}

func speechResponse(text string) string {
	return `{"combinedPhrases":[{"text":"` + text + `"}]}`
}

func TestTranscribeCombinedPhrases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "test-key" {
			t.Errorf("subscription key header: %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not multipart: %v", err)
		}
		if _, hdr, err := r.FormFile("audio"); err != nil || hdr.Filename != "audio.wav" {
			t.Errorf("audio part: %v %+v", err, hdr)
		}
		def := r.FormValue("definition")
		var parsed map[string][]string
		if err := json.Unmarshal([]byte(def), &parsed); err != nil || len(parsed["locales"]) == 0 {
			t.Errorf("definition part: %q", def)
		}
		w.Write([]byte(speechResponse("hello world")))
	}))
	defer srv.Close()

	a := newTestAzure(srv.URL, "", Config{Locales: []string{"en-US", "zh-CN"}})
	res, err := a.Transcribe(context.Background(), testWAV())
	if err != nil {
		t.Fatal(err)
	}
	if res.Original != "hello world" || res.FinalText != "hello world" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Polished != nil {
		t.Errorf("polish disabled but got %q", *res.Polished)
	}
}

func TestTranscribePhrasesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"phrases":[{"text":"part one"},{"text":"part two"}]}`))
	}))
	defer srv.Close()

	a := newTestAzure(srv.URL, "", Config{})
	res, err := a.Transcribe(context.Background(), testWAV())
	if err != nil {
		t.Fatal(err)
	}
	if res.Original != "part one part two" {
		t.Errorf("got %q", res.Original)
	}
}

func TestTranscribeRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "transient", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(speechResponse("recovered")))
	}))
	defer srv.Close()

	a := newTestAzure(srv.URL, "", Config{})
	res, err := a.Transcribe(context.Background(), testWAV())
	if err != nil {
		t.Fatal(err)
	}
	if res.Original != "recovered" {
		t.Errorf("got %q", res.Original)
	}
	if calls.Load() != 2 {
		t.Errorf("calls: %d, want 2", calls.Load())
	}
}

func TestTranscribeGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := newTestAzure(srv.URL, "", Config{})
	_, err := a.Transcribe(context.Background(), testWAV())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "quota") {
		t.Errorf("error should carry API body: %v", err)
	}
	if calls.Load() != maxAttempts {
		t.Errorf("calls: %d, want %d", calls.Load(), maxAttempts)
	}
}

func TestTranscribeMissingKey(t *testing.T) {
	a := NewAzure(Config{})
	if _, err := a.Transcribe(context.Background(), testWAV()); err == nil {
		t.Fatal("expected error without speech key")
	}
}

func TestPolishSuccess(t *testing.T) {
	speech := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(speechResponse("helo wrld")))
	}))
	defer speech.Close()

	polish := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("api-key"); got != "oai-key" {
			t.Errorf("api-key header: %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "helo wrld" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "Hello, world."}}},
		})
	}))
	defer polish.Close()

	a := newTestAzure(speech.URL, polish.URL, Config{
		PolishEnabled: true,
		OpenAIKey:     "oai-key",
	})
	res, err := a.Transcribe(context.Background(), testWAV())
	if err != nil {
		t.Fatal(err)
	}
	if res.Original != "helo wrld" {
		t.Errorf("original: %q", res.Original)
	}
	if res.Polished == nil || *res.Polished != "Hello, world." {
		t.Errorf("polished: %v", res.Polished)
	}
	if res.FinalText != "Hello, world." {
		t.Errorf("final: %q", res.FinalText)
	}
}

func TestPolishFailureFallsBackToOriginal(t *testing.T) {
	speech := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(speechResponse("raw text")))
	}))
	defer speech.Close()

	polish := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "deployment not found", http.StatusNotFound)
	}))
	defer polish.Close()

	a := newTestAzure(speech.URL, polish.URL, Config{
		PolishEnabled: true,
		OpenAIKey:     "oai-key",
	})
	res, err := a.Transcribe(context.Background(), testWAV())
	if err != nil {
		t.Fatalf("polish failure must not fail transcription: %v", err)
	}
	if res.Polished != nil {
		t.Errorf("polished should be nil on failure, got %q", *res.Polished)
	}
	if res.FinalText != "raw text" {
		t.Errorf("final should fall back to original, got %q", res.FinalText)
	}
}

func TestCompressedUploadSendsFlac(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Filename != "audio.flac" {
			t.Errorf("filename: %q", hdr.Filename)
		}
		magic := make([]byte, 4)
		file.Read(magic)
		if string(magic) != "fLaC" {
			t.Errorf("payload magic: %q", magic)
		}
		w.Write([]byte(speechResponse("ok")))
	}))
	defer srv.Close()

	a := newTestAzure(srv.URL, "", Config{CompressUploads: true})
	if _, err := a.Transcribe(context.Background(), testWAV()); err != nil {
		t.Fatal(err)
	}
}
