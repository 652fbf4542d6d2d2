// Package capture is the client side of the recording boundary: it
// owns microphone capture and hands finished WAV bytes to the session
// controller.
package capture

import (
	"context"
	"errors"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// Recorder is the remote capture layer the session controller drives.
//
// End must always reset recorder state, even when it returns an error,
// so a failed stop never wedges the next recording.
type Recorder interface {
	// Begin starts capturing from the default input device.
	Begin(ctx context.Context) error
	// Level returns the current input level in [0,1].
	Level() float64
	// End stops capturing and returns the recording as 16kHz mono WAV.
	End(ctx context.Context) ([]byte, error)
}
