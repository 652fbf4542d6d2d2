// Package inject places transcribed text into the focused window:
// clipboard copy followed by a synthetic paste keystroke.
package inject

import (
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

// focusDelay gives the window manager time to settle focus between the
// clipboard write and the paste keystroke.
const focusDelay = 100 * time.Millisecond

// Copy puts text on the system clipboard.
func Copy(text string) error {
	return cb.WriteAll(text)
}

// Insert copies text to the clipboard and pastes it into the focused
// window.
func Insert(text string) error {
	if err := Copy(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	time.Sleep(focusDelay)
	if err := sendPaste(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}
	return nil
}
