// Package encoder converts captured PCM into the formats sent to the
// transcription service and stored as audio blobs.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)
