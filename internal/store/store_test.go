package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestPutAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	id := "a1b2i0"
	entry, err := s.Put(id, "a1b2", []byte("hello world"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if entry.Ext != "txt" || entry.MimeType != "text/plain" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	got, ok := s.Get(id)
	if !ok {
		t.Fatal("expected entry to be found")
	}
	if got.Filename != entry.Filename {
		t.Fatalf("filename mismatch: %q vs %q", got.Filename, entry.Filename)
	}

	data, err := s.ReadBytes(id)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("unexpected bytes: %q", data)
	}
}

func TestPutPreservesCreatedAtAcrossUpdates(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	id := "deadbeefi0"
	first, err := s.Put(id, "deadbeef", []byte("v1"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	second, err := s.Put(id, "deadbeef", []byte("v2-longer"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("createdAt changed across update: %v vs %v", first.CreatedAt, second.CreatedAt)
	}
	if second.Size != int64(len("v2-longer")) {
		t.Fatalf("size not updated: %+v", second)
	}
}

func TestPutSniffsWeakClassification(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 1, 2, 3}
	entry, err := s.Put("cafei0", "cafe", png, "application/octet-stream")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if entry.Ext != "png" || entry.MimeType != "image/png" {
		t.Fatalf("expected sniffed png classification, got %+v", entry)
	}
}

func TestGetDropsStaleEntryWhenFileMissing(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	id := "f00di0"
	entry, err := s.Put(id, "f00d", []byte("x"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := os.Remove(filepath.Join(s.contentDir, entry.Filename)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, ok := s.Get(id); ok {
		t.Fatal("expected stale entry to report not found")
	}
}
