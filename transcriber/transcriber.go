// Package transcriber sends recorded audio to the transcription
// service and optionally polishes the transcript.
package transcriber

import "context"

// Result is one finished transcription. Polished is nil when polishing
// is disabled, not configured, or failed; FinalText is then Original.
type Result struct {
	Original  string
	Polished  *string
	FinalText string
}

type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (Result, error)
}
