package audiostore

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
)

func writeFile(path string) error {
	return os.WriteFile(path, []byte("not a directory"), 0644)
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	defer s.Close()
	ctx := context.Background()

	want := []byte{0x52, 0x49, 0x46, 0x46, 1, 2, 3}
	s.Save(ctx, 1700000000001, want)

	got := s.Get(ctx, 1700000000001)
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSaveIsUpsert(t *testing.T) {
	s := New(t.TempDir())
	defer s.Close()
	ctx := context.Background()

	s.Save(ctx, 42, []byte("first"))
	s.Save(ctx, 42, []byte("second"))

	if got := s.Get(ctx, 42); string(got) != "second" {
		t.Errorf("got %q, want second", got)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := New(t.TempDir())
	defer s.Close()

	if got := s.Get(context.Background(), 999); got != nil {
		t.Errorf("expected nil for missing key, got %v", got)
	}
}

func TestDelete(t *testing.T) {
	s := New(t.TempDir())
	defer s.Close()
	ctx := context.Background()

	s.Save(ctx, 7, []byte("audio"))
	s.Delete(ctx, 7)

	if got := s.Get(ctx, 7); got != nil {
		t.Errorf("expected nil after delete, got %v", got)
	}
	// deleting again is harmless
	s.Delete(ctx, 7)
}

func TestClear(t *testing.T) {
	s := New(t.TempDir())
	defer s.Close()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		s.Save(ctx, i, []byte{byte(i)})
	}
	s.Clear(ctx)

	for i := int64(1); i <= 5; i++ {
		if got := s.Get(ctx, i); got != nil {
			t.Errorf("key %d survived clear: %v", i, got)
		}
	}
}

func TestConcurrentInit(t *testing.T) {
	s := New(t.TempDir())
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int64) {
			defer wg.Done()
			s.Save(ctx, i, []byte{byte(i)})
		}(int64(i))
	}
	wg.Wait()

	for i := int64(0); i < 8; i++ {
		if got := s.Get(ctx, i); len(got) != 1 || got[0] != byte(i) {
			t.Errorf("key %d: got %v", i, got)
		}
	}
}

func TestGetFailOpenOnBadDir(t *testing.T) {
	// A file in place of the data dir makes init fail; reads must
	// degrade to nil instead of erroring.
	dir := t.TempDir() + "/occupied"
	if err := writeFile(dir); err != nil {
		t.Fatal(err)
	}
	s := New(dir + "/sub")
	defer s.Close()

	if got := s.Get(context.Background(), 1); got != nil {
		t.Errorf("expected nil on init failure, got %v", got)
	}
	s.Save(context.Background(), 1, []byte("x")) // must not panic
}
