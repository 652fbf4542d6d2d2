package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const polishSystemPrompt = "You are a text polishing assistant. " +
	"Improve the given text by fixing grammar, punctuation, and clarity. " +
	"Keep the original meaning and tone. Return only the polished text without explanations."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *Azure) polish(ctx context.Context, text string) (string, error) {
	reqBody := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: polishSystemPrompt},
			{Role: "user", Content: text},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.polishURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", a.cfg.OpenAIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai API error (%d): %s", resp.StatusCode, errBody)
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return parsed.Choices[0].Message.Content, nil
}
