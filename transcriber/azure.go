package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"fluxvoice/encoder"
	"fluxvoice/log"
)

const (
	speechAPIVersion = "2024-11-15"
	maxAttempts      = 2
)

type Config struct {
	SpeechKey        string
	SpeechRegion     string
	OpenAIEndpoint   string
	OpenAIKey        string
	OpenAIDeployment string
	Locales          []string
	PolishEnabled    bool
	// CompressUploads re-encodes WAV as FLAC before upload.
	CompressUploads bool
}

// Azure transcribes through the Fast Transcription REST API and
// polishes through an Azure OpenAI chat deployment.
type Azure struct {
	cfg        Config
	client     *http.Client
	speechURL  string
	polishURL  string
	retryDelay time.Duration
}

func NewAzure(cfg Config) *Azure {
	if len(cfg.Locales) == 0 {
		cfg.Locales = []string{"en-US"}
	}
	a := &Azure{
		cfg:        cfg,
		client:     &http.Client{Timeout: 60 * time.Second},
		retryDelay: time.Second,
	}
	a.speechURL = fmt.Sprintf(
		"https://%s.api.cognitive.microsoft.com/speechtotext/transcriptions:transcribe?api-version=%s",
		cfg.SpeechRegion, speechAPIVersion)
	if cfg.OpenAIEndpoint != "" {
		a.polishURL = fmt.Sprintf(
			"%s/openai/deployments/%s/chat/completions?api-version=2024-02-15-preview",
			trimSlash(cfg.OpenAIEndpoint), cfg.OpenAIDeployment)
	}
	return a
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// Transcribe uploads the recording, retrying transient failures, then
// runs the optional polish pass. Polish failures fall back to the raw
// transcript and never fail the transcription.
func (a *Azure) Transcribe(ctx context.Context, wav []byte) (Result, error) {
	if a.cfg.SpeechKey == "" {
		return Result{}, fmt.Errorf("azure speech key not configured")
	}

	payload, filename, mime, err := a.uploadBody(wav)
	if err != nil {
		return Result{}, err
	}

	var original string
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		original, lastErr = a.transcribeOnce(ctx, payload, filename, mime)
		if lastErr == nil {
			break
		}
		if attempt < maxAttempts-1 {
			log.Warnf("transcription attempt %d failed: %v, retrying", attempt+1, lastErr)
			select {
			case <-time.After(a.retryDelay << attempt):
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return Result{}, fmt.Errorf("transcription failed after %d attempts: %w", maxAttempts, lastErr)
	}

	result := Result{Original: original, FinalText: original}

	if a.cfg.PolishEnabled && a.cfg.OpenAIKey != "" && a.polishURL != "" {
		polished, err := a.polish(ctx, original)
		if err != nil {
			log.Warnf("polish failed, using original transcript: %v", err)
		} else {
			result.Polished = &polished
			result.FinalText = polished
		}
	}
	return result, nil
}

func (a *Azure) uploadBody(wav []byte) ([]byte, string, string, error) {
	if !a.cfg.CompressUploads {
		return wav, "audio.wav", "audio/wav", nil
	}
	samples, err := encoder.WAVSamples(wav)
	if err != nil {
		return nil, "", "", fmt.Errorf("compress upload: %w", err)
	}
	flacData, err := encoder.FLAC(samples)
	if err != nil {
		return nil, "", "", fmt.Errorf("compress upload: %w", err)
	}
	return flacData, "audio.flac", "audio/flac", nil
}

type transcriptionDefinition struct {
	Locales []string `json:"locales"`
}

type fastTranscriptionResponse struct {
	CombinedPhrases []struct {
		Text string `json:"text"`
	} `json:"combinedPhrases"`
	Phrases []struct {
		Text string `json:"text"`
	} `json:"phrases"`
}

func (a *Azure) transcribeOnce(ctx context.Context, audio []byte, filename, mime string) (string, error) {
	definition, err := json.Marshal(transcriptionDefinition{Locales: a.cfg.Locales})
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	audioHeader := textproto.MIMEHeader{}
	audioHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	audioHeader.Set("Content-Type", mime)
	audioPart, err := writer.CreatePart(audioHeader)
	if err != nil {
		return "", err
	}
	if _, err := audioPart.Write(audio); err != nil {
		return "", err
	}

	defHeader := textproto.MIMEHeader{}
	defHeader.Set("Content-Disposition", `form-data; name="definition"`)
	defHeader.Set("Content-Type", "application/json")
	defPart, err := writer.CreatePart(defHeader)
	if err != nil {
		return "", err
	}
	if _, err := defPart.Write(definition); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.speechURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.cfg.SpeechKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("speech API error (%d): %s", resp.StatusCode, errBody)
	}

	var parsed fastTranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}

	// combinedPhrases preferred, phrases as fallback
	if len(parsed.CombinedPhrases) > 0 && parsed.CombinedPhrases[0].Text != "" {
		return parsed.CombinedPhrases[0].Text, nil
	}
	var joined string
	for _, p := range parsed.Phrases {
		if p.Text == "" {
			continue
		}
		if joined != "" {
			joined += " "
		}
		joined += p.Text
	}
	if joined != "" {
		return joined, nil
	}
	return "", fmt.Errorf("no transcription text in response")
}
