package deps

import (
	"context"
	"testing"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/mimetype"
)

// fakeDecoder serves fixed payloads keyed by inscription id string, and
// records the MaterializeOptions each call was made with.
type fakeDecoder struct {
	payloads map[string]fakePayload
	calls    map[string]MaterializeOptions
}

type fakePayload struct {
	data []byte
	kind mimetype.Kind
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{
		payloads: map[string]fakePayload{},
		calls:    map[string]MaterializeOptions{},
	}
}

func (f *fakeDecoder) Materialize(ctx context.Context, id doginals.ID, opts MaterializeOptions) ([]byte, mimetype.Kind, error) {
	f.calls[id.String()] = opts
	p, ok := f.payloads[id.String()]
	if !ok {
		return nil, mimetype.KindOctetStream, doginals.Newf(doginals.KindIOError, nil, "no fixture for %s", id)
	}
	return p.data, p.kind, nil
}

const (
	rootTxid  = "111111111111111111111111111111111111111111111111111111111111111a"
	childTxid = "222222222222222222222222222222222222222222222222222222222222222b"
	grandTxid = "333333333333333333333333333333333333333333333333333333333333333c"
)

func TestResolveFollowsTextDependencyChain(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder()
	dec.payloads[childTxid+"i0"] = fakePayload{
		data: []byte(`see also /content/` + grandTxid + `i0`),
		kind: mimetype.KindText,
	}
	dec.payloads[grandTxid+"i0"] = fakePayload{
		data: []byte(`leaf, no refs`),
		kind: mimetype.KindText,
	}

	r := New(dec, nil, "")
	root := []byte(`reference /content/` + childTxid)
	if err := r.Resolve(context.Background(), rootTxid, root, mimetype.KindText); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if _, ok := dec.calls[childTxid+"i0"]; !ok {
		t.Fatal("expected child to be materialized")
	}
	if _, ok := dec.calls[grandTxid+"i0"]; !ok {
		t.Fatal("expected grandchild to be materialized via recursion")
	}
}

func TestResolveCycleProtection(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder()
	// child references root right back: must not re-materialize root.
	dec.payloads[childTxid+"i0"] = fakePayload{
		data: []byte(`/content/` + rootTxid + `i0`),
		kind: mimetype.KindText,
	}

	r := New(dec, nil, "")
	root := []byte(`/content/` + childTxid)
	if err := r.Resolve(context.Background(), rootTxid, root, mimetype.KindText); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if _, ok := dec.calls[rootTxid+"i0"]; ok {
		t.Fatal("root must never be materialized as its own dependency")
	}
	if _, ok := dec.calls[childTxid+"i0"]; !ok {
		t.Fatal("expected child to be materialized")
	}
}

func TestResolveSelfReferenceDoesNotLoop(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder()
	r := New(dec, nil, "")
	root := []byte(`/content/` + rootTxid + `i0`)
	if err := r.Resolve(context.Background(), rootTxid, root, mimetype.KindText); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(dec.calls) != 0 {
		t.Fatalf("expected no materialize calls, got %v", dec.calls)
	}
}

func TestResolveModelViewerSrcFlagged(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder()
	dec.payloads[childTxid+"i0"] = fakePayload{
		data: []byte(`binary glb data`),
		kind: mimetype.KindGLB,
	}

	r := New(dec, nil, "")
	root := []byte(`<model-viewer src="/content/` + childTxid + `i0"></model-viewer>`)
	if err := r.Resolve(context.Background(), rootTxid, root, mimetype.KindHTML); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	opts, ok := dec.calls[childTxid+"i0"]
	if !ok {
		t.Fatal("expected model-viewer src to be materialized")
	}
	if !opts.ModelViewerSrc {
		t.Fatal("expected ModelViewerSrc to be set")
	}
}

func TestResolveNonTextLikeIsNoOp(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder()
	r := New(dec, nil, "")
	if err := r.Resolve(context.Background(), rootTxid, []byte{0x89, 'P', 'N', 'G'}, mimetype.KindPNG); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(dec.calls) != 0 {
		t.Fatal("expected no scanning of binary payloads")
	}
}

func TestScanGltfJSONOnlyBuffersAndImages(t *testing.T) {
	t.Parallel()

	doc := []byte(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "/content/` + childTxid + `i0"}],
		"images": [{"uri": "` + grandTxid + `i1"}],
		"extras": {"note": "` + rootTxid + `i0 should not be picked up"}
	}`)

	refs, err := scanGltfJSON(doc)
	if err != nil {
		t.Fatalf("scanGltfJSON: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("refs = %v, want 2", refs)
	}
	want := map[string]bool{childTxid + "i0": true, grandTxid + "i1": true}
	for _, r := range refs {
		if !want[r] {
			t.Fatalf("unexpected ref %q scanned from extras field", r)
		}
	}
}
