package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// wireItem is the backend's snake_case representation of a history
// item. Translation to and from the internal model is total and
// lossless; the only normalization is absent ↔ null for the optional
// fields.
type wireItem struct {
	Original  string  `json:"original"`
	Polished  *string `json:"polished"`
	FinalText string  `json:"final_text"`
	Timestamp int64   `json:"timestamp"`
	AudioData []byte  `json:"audio_data,omitempty"`
}

func toWire(it Item) wireItem {
	return wireItem{
		Original:  it.Original,
		Polished:  it.Polished,
		FinalText: it.FinalText,
		Timestamp: it.Timestamp,
		AudioData: it.AudioData,
	}
}

func fromWire(w wireItem) Item {
	return Item{
		Original:  w.Original,
		Polished:  w.Polished,
		FinalText: w.FinalText,
		Timestamp: w.Timestamp,
		AudioData: w.AudioData,
	}
}

// Remote is the backend-authoritative history store. It is an eventual
// durable backup: callers apply local updates first and never block on
// these calls.
type Remote struct {
	baseURL string
	client  *http.Client
}

func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Remote) LoadHistory(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/history", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("load history: status %d: %s", resp.StatusCode, body)
	}

	var wire []wireItem
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("load history: parse: %w", err)
	}
	items := make([]Item, len(wire))
	for i, w := range wire {
		items[i] = fromWire(w)
	}
	return items, nil
}

func (r *Remote) SaveItem(ctx context.Context, it Item) error {
	data, err := json.Marshal(toWire(it))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/history", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("save history item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("save history item: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (r *Remote) ClearHistory(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.baseURL+"/history", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("clear history: status %d: %s", resp.StatusCode, body)
	}
	return nil
}
