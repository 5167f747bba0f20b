// Package decoder is the top-level decoder orchestrator: it wires the
// master index cache, the chain walker, media-type sniffing, and
// dependency resolution into the single "materialize an inscription id"
// operation every other entry point (a future HTTP surface, dependency
// resolution itself, a CLI command) drives.
package decoder

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/decred/slog"

	sharedtypes "github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/deps"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/mimetype"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/progress"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/store"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/walker"
)

// Walker is the subset of internal/walker.Walker the orchestrator drives.
type Walker interface {
	Walk(ctx context.Context, startTxid string, tracker *progress.Tracker, progressKey string) (walker.Result, error)
}

// Decoder materializes inscription ids: it probes the content store's
// cache, walks the chain on a miss, decodes the collected hex, writes and
// classifies the result, and recurses into any dependencies the payload
// references. It implements internal/deps.Decoder so a Resolver can drive
// it for nested materializations.
type Decoder struct {
	walker  Walker
	store   *store.Store
	tracker *progress.Tracker
}

// New constructs a Decoder.
func New(w Walker, s *store.Store, tracker *progress.Tracker) *Decoder {
	return &Decoder{walker: w, store: s, tracker: tracker}
}

// Materialize resolves id to its decoded bytes and classified media kind,
// serving the master index cache when available and otherwise walking the
// chain, writing the content file, and recursing into dependencies.
func (d *Decoder) Materialize(ctx context.Context, id sharedtypes.ID, opts deps.MaterializeOptions) ([]byte, mimetype.Kind, error) {
	key := id.String()

	if entry, ok := d.store.Get(key); ok {
		data, err := d.store.ReadBytes(key)
		if err != nil {
			return nil, 0, err
		}
		return data, mimetype.Classify(mimetype.Normalize(entry.MimeType)), nil
	}

	if d.tracker != nil {
		d.tracker.Start(key, key)
		defer d.tracker.Complete(key)
	}

	result, err := d.walker.Walk(ctx, id.Txid, d.tracker, key)
	if err != nil {
		return nil, 0, err
	}
	if result.Hex == "" && result.Truncated {
		return nil, 0, sharedtypes.Newf(sharedtypes.KindTruncated, nil, "%s: chain walk produced no data", key)
	}

	data, err := decodeHex(result.Hex, opts.ModelViewerSrc)
	if err != nil {
		return nil, 0, sharedtypes.Newf(sharedtypes.KindInvalidInput, err, "%s: decode envelope hex", key)
	}

	normalized := mimetype.Normalize(result.MimeType)
	kind := mimetype.Classify(normalized)

	if opts.ModelViewerSrc && normalized == mimetype.Default {
		filename, err := d.store.PutRawNoExtension(key, data)
		if err != nil {
			return nil, 0, err
		}
		if _, err := d.store.RenameTo(key, id.Txid, filename, "glb", "model/gltf-binary"); err != nil {
			return nil, 0, err
		}
		kind = mimetype.KindGLB
	} else {
		entry, err := d.store.Put(key, id.Txid, data, result.MimeType)
		if err != nil {
			return nil, 0, err
		}
		kind = mimetype.Classify(mimetype.Normalize(entry.MimeType))
	}

	resolver := deps.New(d, d.tracker, key)
	if err := resolver.Resolve(ctx, id.BaseTxid(), data, kind); err != nil {
		log.Warnf("%s: dependency resolution: %v", key, err)
	}

	return data, kind, nil
}

// decodeHex reproduces the historical decoder's odd-length padding quirk:
// when the concatenated hex string has odd length, five "0" characters are
// appended before decoding. The quirk is suppressed for model-viewer source
// dependencies to keep GLB integrity.
func decodeHex(hexStr string, suppressPadding bool) ([]byte, error) {
	if len(hexStr)%2 != 0 && !suppressPadding {
		hexStr += strings.Repeat("0", 5)
	}
	if len(hexStr)%2 != 0 {
		hexStr = hexStr[:len(hexStr)-1]
	}
	return hex.DecodeString(hexStr)
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
