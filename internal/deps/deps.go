// Package deps walks the dependency references a text-like inscription
// payload makes on other inscriptions, materializing each one in turn so
// the full dependency graph is cached before the root is served.
package deps

import (
	"context"

	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/mimetype"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/progress"
)

// MaterializeOptions carries the per-dependency hints a Decoder needs that
// cannot be inferred from the id alone.
type MaterializeOptions struct {
	// ModelViewerSrc is set when this id was referenced as a
	// <model-viewer src="..."> target somewhere in the request's
	// dependency graph. A weak-mime materialization of such a dependency
	// is written with no extension and then renamed by the caller once
	// its true type is known, and the odd-hex-padding quirk is
	// suppressed for it.
	ModelViewerSrc bool
}

// Decoder is the subset of the top-level orchestrator the resolver drives
// to materialize a dependency. It is an interface so the resolver can be
// tested without a real chain walker or content store behind it.
type Decoder interface {
	Materialize(ctx context.Context, id doginals.ID, opts MaterializeOptions) (data []byte, kind mimetype.Kind, err error)
}

// Resolver walks the dependency graph of a single top-level materialize
// request. Its visited set and model-viewer set are scoped to that one
// request: construct a fresh Resolver per top-level call.
type Resolver struct {
	decoder     Decoder
	tracker     *progress.Tracker
	progressKey string

	visited        map[string]bool // base txid -> seen
	modelViewerSet map[string]bool // normalized id string -> referenced as model-viewer src
}

// New constructs a Resolver for one top-level materialize request.
// tracker/progressKey may be zero-valued to disable progress reporting.
func New(decoder Decoder, tracker *progress.Tracker, progressKey string) *Resolver {
	return &Resolver{
		decoder:        decoder,
		tracker:        tracker,
		progressKey:    progressKey,
		visited:        map[string]bool{},
		modelViewerSet: map[string]bool{},
	}
}

// Resolve scans data (classified as kind) for references to other
// inscriptions and materializes each one, recursing into any dependency
// that is itself text-like. rootBase excludes the root inscription's own
// txid from being treated as a dependency of itself.
func (r *Resolver) Resolve(ctx context.Context, rootBase string, data []byte, kind mimetype.Kind) error {
	r.visited[rootBase] = true

	if !mimetype.IsTextLike(kind) {
		return nil
	}

	refs, err := r.scan(data, kind)
	if err != nil {
		log.Warnf("dependency scan failed: %v", err)
		return nil
	}

	if r.tracker != nil && r.progressKey != "" {
		r.tracker.SetDependencyPlan(r.progressKey, len(refs))
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.resolveOne(ctx, ref)
	}

	return nil
}

func (r *Resolver) scan(data []byte, kind mimetype.Kind) ([]string, error) {
	if kind == mimetype.KindGltfJSON {
		return scanGltfJSON(data)
	}

	text := string(data)
	refs := scanGenericText(text)

	if kind == mimetype.KindHTML || kind == mimetype.KindSVG {
		for _, src := range scanModelViewerSrcs(text) {
			r.modelViewerSet[src] = true
		}
	}

	return refs, nil
}

func (r *Resolver) resolveOne(ctx context.Context, ref string) {
	defer func() {
		if r.tracker != nil && r.progressKey != "" {
			r.tracker.IncrementDependencyDone(r.progressKey)
		}
	}()

	id, err := doginals.ParseID(ref)
	if err != nil {
		log.Warnf("skipping malformed dependency reference %q: %v", ref, err)
		return
	}

	base := id.BaseTxid()
	if r.visited[base] {
		return
	}
	r.visited[base] = true

	opts := MaterializeOptions{ModelViewerSrc: r.modelViewerSet[id.String()]}

	data, kind, err := r.decoder.Materialize(ctx, id, opts)
	if err != nil {
		log.Warnf("dependency %s failed to materialize: %v", id, err)
		return
	}

	if mimetype.IsTextLike(kind) {
		if err := r.Resolve(ctx, base, data, kind); err != nil {
			log.Warnf("dependency %s: nested resolve: %v", id, err)
		}
	}
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
