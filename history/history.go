// Package history maintains the bounded, ordered list of past
// transcriptions and keeps it synchronized across restarts and across
// concurrently open windows of the same installation.
//
// The list lives in three tiers: the in-memory slice (source of truth
// for the current window), a lightweight JSON file shared between
// windows, and the audio blob store. A backend-authoritative remote
// store can be layered on top; its calls never block the in-memory
// update.
package history

import (
	"context"
	"sync"
	"time"

	"fluxvoice/audiostore"
	"fluxvoice/log"
)

// MaxItems caps the history list. The 20 newest items by timestamp
// survive, everything older is dropped.
const MaxItems = 20

// Item is one past transcription. Timestamp (unix milliseconds) is the
// primary key and doubles as the audio blob key. AudioData is hydrated
// from the blob store and never written to the lightweight file.
type Item struct {
	Original  string  `json:"original"`
	Polished  *string `json:"polished"`
	FinalText string  `json:"finalText"`
	Timestamp int64   `json:"timestamp"`
	AudioData []byte  `json:"-"`
}

// Store is the history persistence layer.
type Store struct {
	blobs  *audiostore.Store
	file   *fileStore
	remote *Remote // nil unless the backend-authoritative variant is configured
	now    func() time.Time

	mu    sync.Mutex
	items []Item
	subs  []chan []Item
}

// New builds a Store rooted at dir and starts watching the shared
// history file for external changes. remote may be nil.
func New(dir string, blobs *audiostore.Store, remote *Remote) (*Store, error) {
	file, err := newFileStore(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{
		blobs:  blobs,
		file:   file,
		remote: remote,
		now:    time.Now,
	}
	if err := file.watch(s.reconcile); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the durable history (remote store when configured, the
// shared file otherwise), truncates it to MaxItems and hydrates audio
// for each item. A missing blob leaves AudioData nil; it only means
// playback is unavailable.
func (s *Store) Load(ctx context.Context) error {
	var items []Item
	var err error

	if s.remote != nil {
		items, err = s.remote.LoadHistory(ctx)
		if err != nil {
			log.Warnf("history: remote load failed, falling back to file: %v", err)
			items, err = s.file.read()
		}
	} else {
		items, err = s.file.read()
	}
	if err != nil {
		return err
	}

	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	s.hydrate(ctx, items)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	log.History("load", len(items))
	return nil
}

// hydrate fetches audio for every item concurrently and waits for all
// of them before the list is published.
func (s *Store) hydrate(ctx context.Context, items []Item) {
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(it *Item) {
			defer wg.Done()
			it.AudioData = s.blobs.Get(ctx, it.Timestamp)
		}(&items[i])
	}
	wg.Wait()
}

// Add appends a new transcription, newest first. The audio blob is
// persisted first (best-effort), then the in-memory list is updated and
// re-capped, then the audio-free projection is written to the shared
// file. The remote store, when configured, is updated without blocking
// the already-applied local state.
func (s *Store) Add(ctx context.Context, original string, polished *string, finalText string, audio []byte, timestamp int64) Item {
	if timestamp == 0 {
		timestamp = s.now().UnixMilli()
	}

	item := Item{
		Original:  original,
		Polished:  polished,
		FinalText: finalText,
		Timestamp: timestamp,
		AudioData: audio,
	}

	if len(audio) > 0 {
		s.blobs.Save(ctx, timestamp, audio)
	}

	s.mu.Lock()
	s.items = append([]Item{item}, s.items...)
	if len(s.items) > MaxItems {
		for _, dropped := range s.items[MaxItems:] {
			s.blobs.Delete(ctx, dropped.Timestamp)
		}
		s.items = s.items[:MaxItems]
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.file.write(snapshot); err != nil {
		log.Warnf("history: %v", err)
	}

	if s.remote != nil {
		go func() {
			if err := s.remote.SaveItem(context.Background(), item); err != nil {
				log.Warnf("history: remote save: %v", err)
			}
		}()
	}

	log.History("add", len(snapshot))
	s.publish(snapshot)
	return item
}

// Clear empties the in-memory list, the shared file and all audio
// blobs. The remote store is cleared without blocking.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	if err := s.file.write(nil); err != nil {
		log.Warnf("history: %v", err)
	}
	s.blobs.Clear(ctx)

	if s.remote != nil {
		go func() {
			if err := s.remote.ClearHistory(context.Background()); err != nil {
				log.Warnf("history: remote clear: %v", err)
			}
		}()
	}

	log.History("clear", 0)
	s.publish(nil)
}

// Items returns a copy of the current list, newest first.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Subscribe returns a channel receiving the full list after every
// change. Slow subscribers only ever see the latest snapshot.
func (s *Store) Subscribe() <-chan []Item {
	ch := make(chan []Item, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) publish(snapshot []Item) {
	s.mu.Lock()
	subs := s.subs
	s.mu.Unlock()
	for _, ch := range subs {
		// drop the stale snapshot if the subscriber hasn't drained it
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// reconcile runs when another window rewrites the shared file. A
// cleared value clears the local list; a new value is parsed and
// re-hydrated before replacing the in-memory list atomically. Malformed
// payloads leave local state untouched.
func (s *Store) reconcile() {
	raw, err := s.file.readRaw()
	if err != nil {
		log.Warnf("history: reconcile read: %v", err)
		return
	}
	if s.file.isOwnWrite(raw) {
		return
	}

	items, err := decodeItems(raw)
	if err != nil {
		log.Warnf("history: reconcile: %v", err)
		return
	}

	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	ctx := context.Background()
	s.hydrate(ctx, items)

	s.mu.Lock()
	s.items = items
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	log.History("reconcile", len(items))
	s.publish(snapshot)
}

// Close stops the file watcher. Pending state has already been written
// synchronously by Add/Clear; nothing is lost on teardown.
func (s *Store) Close() {
	s.file.close()
}
