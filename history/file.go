package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// lightFileName is the lightweight durable store: a JSON array of the
// audio-free history projection, shared by every window of the app.
const lightFileName = "fluxvoice_transcription_history.json"

// fileStore wraps the shared JSON file and a change watcher. A window
// that writes the file remembers its own payload so the watcher can
// tell external updates from local echo.
type fileStore struct {
	path string

	mu        sync.Mutex
	lastWrite []byte
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

func newFileStore(dir string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &fileStore{path: filepath.Join(dir, lightFileName)}, nil
}

// read returns the stored items, or nil when the file does not exist.
func (f *fileStore) read() ([]Item, error) {
	data, err := f.readRaw()
	if err != nil {
		return nil, err
	}
	return decodeItems(data)
}

// readRaw returns the file bytes, or nil when the file does not exist.
func (f *fileStore) readRaw() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	return data, nil
}

func decodeItems(data []byte) ([]Item, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse history file: %w", err)
	}
	return items, nil
}

func (f *fileStore) write(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	f.mu.Lock()
	f.lastWrite = data
	f.mu.Unlock()

	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}

// isOwnWrite reports whether data matches this window's last write,
// so the watcher ignores the echo of local updates.
func (f *fileStore) isOwnWrite(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastWrite != nil && bytes.Equal(data, f.lastWrite)
}

// watch invokes onChange whenever another window rewrites the history
// file. Watching the parent directory survives file replacement.
func (f *fileStore) watch(onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch history dir: %w", err)
	}

	f.mu.Lock()
	f.watcher = w
	f.done = make(chan struct{})
	done := f.done
	f.mu.Unlock()

	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != lightFileName {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
					continue
				}
				onChange()
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

func (f *fileStore) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
	if f.watcher != nil {
		f.watcher.Close()
		f.watcher = nil
	}
}
