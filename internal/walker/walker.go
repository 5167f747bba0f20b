// Package walker drives the envelope parser (internal/envelope) across the
// chain of transactions that together carry one inscription's payload.
package walker

import (
	"context"
	"time"

	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/envelope"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/progress"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/rpc"
)

const (
	// DefaultDepthBlocks is the window of blocks, starting at the
	// confirming block of the current hop, the forward scan searches for
	// the next hop. The historical decoder varied between 5000 and 1000
	// across call sites; per the unification decision in SPEC_FULL.md
	// (§9 open question), this implementation always uses 5000.
	DefaultDepthBlocks = 5000

	// DefaultMaxHops bounds the total number of transactions a single
	// walk may traverse.
	DefaultMaxHops = 20000

	// continuationVoutIndex is the fixed output index every hop's
	// continuation spends.
	continuationVoutIndex = 0

	// politenessInterval is how often, in scanned blocks, the forward
	// scan yields briefly rather than hammering the node.
	politenessInterval = 100
)

// Result is the accumulated outcome of walking a chain of inscription
// transactions.
type Result struct {
	Hex            string
	MimeType       string
	ChunksFound    int
	EstimatedTotal int
	Truncated      bool
}

// NodeClient is the subset of internal/rpc.Client the walker drives. It is
// an interface so tests can exercise the hop-following logic against a
// fake chain without a live node.
type NodeClient interface {
	GetRawTransactionVerbose(ctx context.Context, txid string) (*rpc.TxVerbose, error)
	GetBlockVerbose(ctx context.Context, hash string) (*rpc.BlockVerbose, error)
	GetBlockHash(ctx context.Context, height int64) (string, error)
	GetBlockCount(ctx context.Context) (int64, error)
}

// Walker follows the envelope across transactions via output-spend lookup
// within a bounded block window.
type Walker struct {
	rpc         NodeClient
	depthBlocks int64
	maxHops     int
}

// New constructs a Walker. A depthBlocks or maxHops of zero selects the
// documented default.
func New(client NodeClient, depthBlocks int64, maxHops int) *Walker {
	if depthBlocks <= 0 {
		depthBlocks = DefaultDepthBlocks
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Walker{rpc: client, depthBlocks: depthBlocks, maxHops: maxHops}
}

// Walk follows the chain starting at startTxid until end-of-data, a broken
// chain, or the hop cap is reached. progressKey/tracker may be nil to
// disable progress reporting.
func (w *Walker) Walk(ctx context.Context, startTxid string, tracker *progress.Tracker, progressKey string) (Result, error) {
	var (
		result  Result
		hexParts []string
		visited = map[string]bool{}
		current = startTxid
		prev    string
	)

	for hop := 0; hop < w.maxHops; hop++ {
		if err := ctx.Err(); err != nil {
			return finish(result, hexParts, true), err
		}

		visited[current] = true

		tx, err := w.rpc.GetRawTransactionVerbose(ctx, current)
		if err != nil {
			if len(hexParts) == 0 {
				return Result{}, doginals.Newf(doginals.KindRPCError, err, "fetch transaction %s", current)
			}
			return finish(result, hexParts, true), nil
		}

		var hopResult envelope.Result
		if hop == 0 {
			hopResult, err = parseGenesisInput(tx)
		} else {
			hopResult, err = parseSubsequentInput(tx, prev)
		}

		if err != nil {
			var trunc *envelope.TruncationError
			if isTruncation(err, &trunc) {
				hopResult = trunc.Result
				log.Warnf("%s: truncated envelope parse at hop %d: %v", startTxid, hop, trunc.Err)
			} else if len(hexParts) == 0 {
				return Result{}, err
			} else {
				return finish(result, hexParts, true), nil
			}
		}

		hexParts = append(hexParts, hopResult.Hex())
		if hop == 0 {
			result.MimeType = hopResult.MimeType
		}

		if tracker != nil {
			tracker.Update(progressKey, hopResult.ChunksConsumed, hopResult.LastRemaining)
		}
		result.ChunksFound += hopResult.ChunksConsumed
		if hopResult.LastRemaining+result.ChunksFound > result.EstimatedTotal {
			result.EstimatedTotal = hopResult.LastRemaining + result.ChunksFound
		}

		if hopResult.EndOfData {
			return finish(result, hexParts, false), nil
		}

		if tx.InMempool() {
			// No block to search forward from: the chain ends here.
			return finish(result, hexParts, true), nil
		}

		next, found, err := w.findNextHop(ctx, tx)
		if err != nil {
			return finish(result, hexParts, true), nil
		}
		if !found {
			return finish(result, hexParts, true), nil
		}

		if visited[next.NextTxid] {
			retry, retryFound, err := w.scanForSpend(ctx, current, next.Height+1)
			if err != nil || !retryFound || visited[retry.NextTxid] {
				return finish(result, hexParts, true), nil
			}
			next = retry
		}

		prev = current
		current = next.NextTxid
	}

	return finish(result, hexParts, true), nil
}

func isTruncation(err error, out **envelope.TruncationError) bool {
	t, ok := err.(*envelope.TruncationError)
	if ok {
		*out = t
	}
	return ok
}

func finish(result Result, hexParts []string, truncated bool) Result {
	result.Hex = joinHex(hexParts)
	result.Truncated = truncated
	return result
}

func joinHex(parts []string) string {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return string(out)
}

func parseGenesisInput(tx *rpc.TxVerbose) (envelope.Result, error) {
	for _, in := range tx.Vin {
		tokens := envelope.Tokenize(in.ScriptSig.Asm)
		if len(tokens) > 0 && tokens[0] == envelope.GenesisSentinel {
			return envelope.ParseGenesis(tokens)
		}
	}
	return envelope.Result{}, doginals.Newf(doginals.KindNotDoginal, envelope.ErrNotDoginal, "tx %s has no genesis input", tx.Txid)
}

func parseSubsequentInput(tx *rpc.TxVerbose, spentTxid string) (envelope.Result, error) {
	for _, in := range tx.Vin {
		if in.Txid == spentTxid && in.Vout == continuationVoutIndex {
			return envelope.ParseSubsequent(envelope.Tokenize(in.ScriptSig.Asm))
		}
	}
	return envelope.Result{}, doginals.Newf(doginals.KindTruncated, nil, "tx %s has no input spending %s:%d", tx.Txid, spentTxid, continuationVoutIndex)
}

// hop describes a located continuation transaction.
type hop struct {
	NextTxid string
	Height   int64
}

// findNextHop scans forward from the confirming block of tx for a
// transaction spending output continuationVoutIndex of tx.
func (w *Walker) findNextHop(ctx context.Context, tx *rpc.TxVerbose) (hop, bool, error) {
	block, err := w.rpc.GetBlockVerbose(ctx, tx.BlockHash)
	if err != nil {
		return hop{}, false, err
	}
	return w.scanForSpend(ctx, tx.Txid, block.Height)
}

// scanForSpend walks blocks [startHeight, startHeight+depthBlocks) looking
// for a transaction with an input spending spentTxid:continuationVoutIndex.
func (w *Walker) scanForSpend(ctx context.Context, spentTxid string, startHeight int64) (hop, bool, error) {
	tip, err := w.rpc.GetBlockCount(ctx)
	if err != nil {
		return hop{}, false, err
	}

	end := startHeight + w.depthBlocks
	for height := startHeight; height < end; height++ {
		if height > tip {
			return hop{}, false, nil
		}
		if err := ctx.Err(); err != nil {
			return hop{}, false, err
		}

		if height > startHeight && (height-startHeight)%politenessInterval == 0 {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return hop{}, false, ctx.Err()
			}
		}

		blockHash, err := w.rpc.GetBlockHash(ctx, height)
		if err != nil {
			return hop{}, false, err
		}
		block, err := w.rpc.GetBlockVerbose(ctx, blockHash)
		if err != nil {
			return hop{}, false, err
		}

		for _, txid := range block.Tx {
			tx, err := w.rpc.GetRawTransactionVerbose(ctx, txid)
			if err != nil {
				continue
			}
			for _, in := range tx.Vin {
				if in.Txid == spentTxid && in.Vout == continuationVoutIndex {
					return hop{NextTxid: tx.Txid, Height: height}, true, nil
				}
			}
		}
	}

	return hop{}, false, nil
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
