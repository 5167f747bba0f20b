package decoder

import (
	"bytes"
	"context"
	"testing"

	sharedtypes "github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/deps"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/mimetype"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/progress"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/store"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/walker"
)

type fakeWalker struct {
	result walker.Result
	err    error
	calls  int
}

func (f *fakeWalker) Walk(ctx context.Context, startTxid string, tracker *progress.Tracker, progressKey string) (walker.Result, error) {
	f.calls++
	return f.result, f.err
}

const testTxid = "abcd000000000000000000000000000000000000000000000000000000ab"

func TestMaterializeCacheMissWalksDecodesAndWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	fw := &fakeWalker{result: walker.Result{
		Hex:      "68656c6c6f", // "hello"
		MimeType: "text/plain",
	}}
	tracker := progress.New()
	d := New(fw, s, tracker)

	id := sharedtypes.ID{Txid: testTxid, Index: 0}
	data, kind, err := d.Materialize(context.Background(), id, deps.MaterializeOptions{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Fatalf("data = %q, want %q", data, "hello")
	}
	if kind != mimetype.KindText {
		t.Fatalf("kind = %v, want KindText", kind)
	}
	if fw.calls != 1 {
		t.Fatalf("walker called %d times, want 1", fw.calls)
	}

	if _, ok := s.Get(id.String()); !ok {
		t.Fatal("expected the materialized id to now be cached")
	}
}

func TestMaterializeCacheHitSkipsWalker(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	id := sharedtypes.ID{Txid: testTxid, Index: 0}
	if _, err := s.Put(id.String(), id.Txid, []byte("cached"), "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	fw := &fakeWalker{}
	d := New(fw, s, nil)

	data, kind, err := d.Materialize(context.Background(), id, deps.MaterializeOptions{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !bytes.Equal(data, []byte("cached")) {
		t.Fatalf("data = %q, want %q", data, "cached")
	}
	if kind != mimetype.KindText {
		t.Fatalf("kind = %v, want KindText", kind)
	}
	if fw.calls != 0 {
		t.Fatalf("walker called %d times, want 0 on a cache hit", fw.calls)
	}
}

func TestMaterializeTruncatedWithNoDataFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	fw := &fakeWalker{result: walker.Result{Hex: "", Truncated: true}}
	d := New(fw, s, nil)

	id := sharedtypes.ID{Txid: testTxid, Index: 0}
	_, _, err = d.Materialize(context.Background(), id, deps.MaterializeOptions{})
	if err == nil {
		t.Fatal("expected an error for a truncated walk with no collected data")
	}
}

func TestMaterializeModelViewerSrcWritesNoExtensionThenRenamesToGLB(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	glbBytes := []byte{0x67, 0x6c, 0x54, 0x46} // "glTF" magic prefix, arbitrary body
	fw := &fakeWalker{result: walker.Result{
		Hex:      "676c5446",
		MimeType: "application/octet-stream",
	}}
	d := New(fw, s, nil)

	id := sharedtypes.ID{Txid: testTxid, Index: 0}
	data, kind, err := d.Materialize(context.Background(), id, deps.MaterializeOptions{ModelViewerSrc: true})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !bytes.Equal(data, glbBytes) {
		t.Fatalf("data = %x, want %x", data, glbBytes)
	}
	if kind != mimetype.KindGLB {
		t.Fatalf("kind = %v, want KindGLB", kind)
	}

	entry, ok := s.Get(id.String())
	if !ok {
		t.Fatal("expected a cached entry after the model-viewer materialization")
	}
	if entry.Ext != "glb" {
		t.Fatalf("Ext = %q, want glb", entry.Ext)
	}
}

func TestMaterializeModelViewerSrcWithStrongMimeSkipsGLBRename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	// A declared mime of image/png is not weak, so even with
	// ModelViewerSrc set, materialization should not be forced through
	// the no-extension/rename-to-glb path.
	fw := &fakeWalker{result: walker.Result{
		Hex:      "89504e470d0a1a0a",
		MimeType: "image/png",
	}}
	d := New(fw, s, nil)

	id := sharedtypes.ID{Txid: testTxid, Index: 0}
	_, kind, err := d.Materialize(context.Background(), id, deps.MaterializeOptions{ModelViewerSrc: true})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if kind != mimetype.KindPNG {
		t.Fatalf("kind = %v, want KindPNG", kind)
	}

	entry, ok := s.Get(id.String())
	if !ok {
		t.Fatal("expected a cached entry")
	}
	if entry.Ext == "glb" {
		t.Fatalf("expected entry not to be renamed to glb for a strong declared mime, got Ext = %q", entry.Ext)
	}
}

func TestDecodeHexAppliesOddLengthPaddingQuirk(t *testing.T) {
	t.Parallel()

	// "abc" is 3 hex characters (odd); the quirk appends five "0"s,
	// yielding "abc00000" (8 chars, even) and a final padding byte.
	data, err := decodeHex("abc", false)
	if err != nil {
		t.Fatalf("decodeHex: %v", err)
	}
	if len(data) != 4 {
		t.Fatalf("len(data) = %d, want 4", len(data))
	}
}

func TestDecodeHexSuppressesPaddingForModelViewerDependency(t *testing.T) {
	t.Parallel()

	// With padding suppressed, an odd-length input is instead truncated
	// by one trailing nibble to keep hex.DecodeString happy, never
	// padded with quirk zero bytes.
	data, err := decodeHex("abc", true)
	if err != nil {
		t.Fatalf("decodeHex: %v", err)
	}
	if len(data) != 1 {
		t.Fatalf("len(data) = %d, want 1", len(data))
	}
}
