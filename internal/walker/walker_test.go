package walker

import (
	"context"
	"testing"

	"github.com/H3imdall-dev/Dogecoin-Tools/internal/progress"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/rpc"
)

// fakeChain is a minimal in-memory NodeClient backing a hand-built sequence
// of transactions, for exercising the walker without a live node.
type fakeChain struct {
	txs      map[string]*rpc.TxVerbose
	blocks   map[int64]*rpc.BlockVerbose
	blockIdx map[string]int64 // blockhash -> height
	tip      int64
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		txs:      map[string]*rpc.TxVerbose{},
		blocks:   map[int64]*rpc.BlockVerbose{},
		blockIdx: map[string]int64{},
	}
}

func (f *fakeChain) GetRawTransactionVerbose(ctx context.Context, txid string) (*rpc.TxVerbose, error) {
	tx, ok := f.txs[txid]
	if !ok {
		return nil, errNotFound
	}
	return tx, nil
}

func (f *fakeChain) GetBlockVerbose(ctx context.Context, hash string) (*rpc.BlockVerbose, error) {
	height, ok := f.blockIdx[hash]
	if !ok {
		return nil, errNotFound
	}
	return f.blocks[height], nil
}

func (f *fakeChain) GetBlockHash(ctx context.Context, height int64) (string, error) {
	b, ok := f.blocks[height]
	if !ok {
		return "", errNotFound
	}
	return b.Hash, nil
}

func (f *fakeChain) GetBlockCount(ctx context.Context) (int64, error) {
	return f.tip, nil
}

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var errNotFound = notFoundError{}

func TestWalkSingleHopEndOfData(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	genesis := &rpc.TxVerbose{
		Txid:      "genesis",
		BlockHash: "h100",
		Vin: []rpc.TxIn{
			{ScriptSig: struct {
				Asm string `json:"asm"`
				Hex string `json:"hex"`
			}{Asm: "6582895 0 746578742f706c61696e 0 68656c6c6f"}},
		},
	}
	chain.txs["genesis"] = genesis
	chain.blocks[100] = &rpc.BlockVerbose{Hash: "h100", Height: 100, Tx: []string{"genesis"}}
	chain.blockIdx["h100"] = 100
	chain.tip = 100

	w := New(chain, 0, 0)
	tracker := progress.New()
	tracker.Start("genesis", "decoding")

	res, err := w.Walk(context.Background(), "genesis", tracker, "genesis")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if res.Hex != "68656c6c6f" {
		t.Fatalf("hex = %q", res.Hex)
	}
	if res.MimeType != "text/plain" {
		t.Fatalf("mime = %q", res.MimeType)
	}
	if res.Truncated {
		t.Fatal("expected not truncated")
	}
	if res.ChunksFound != 1 {
		t.Fatalf("chunksFound = %d", res.ChunksFound)
	}
}

func TestWalkTwoHops(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	genesis := &rpc.TxVerbose{
		Txid:      "genesis",
		BlockHash: "h100",
		Vin: []rpc.TxIn{
			{ScriptSig: struct {
				Asm string `json:"asm"`
				Hex string `json:"hex"`
			}{Asm: "6582895 1 746578742f706c61696e 1 deadbeef"}},
		},
	}
	follow := &rpc.TxVerbose{
		Txid:      "follow",
		BlockHash: "h101",
		Vin: []rpc.TxIn{
			{Txid: "genesis", Vout: 0, ScriptSig: struct {
				Asm string `json:"asm"`
				Hex string `json:"hex"`
			}{Asm: "0 cafef00d"}},
		},
	}
	chain.txs["genesis"] = genesis
	chain.txs["follow"] = follow
	chain.blocks[100] = &rpc.BlockVerbose{Hash: "h100", Height: 100, Tx: []string{"genesis"}}
	chain.blockIdx["h100"] = 100
	chain.blocks[101] = &rpc.BlockVerbose{Hash: "h101", Height: 101, Tx: []string{"follow"}}
	chain.blockIdx["h101"] = 101
	chain.tip = 101

	w := New(chain, 0, 0)
	res, err := w.Walk(context.Background(), "genesis", nil, "")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if res.Hex != "deadbeefcafef00d" {
		t.Fatalf("hex = %q, want concatenation in chain order", res.Hex)
	}
	if res.ChunksFound != 2 {
		t.Fatalf("chunksFound = %d, want 2", res.ChunksFound)
	}
	if res.Truncated {
		t.Fatal("expected not truncated")
	}
}

func TestWalkMempoolGenesisTerminatesWithoutBlockSearch(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	genesis := &rpc.TxVerbose{
		Txid: "genesis",
		// No BlockHash: unconfirmed.
		Vin: []rpc.TxIn{
			{ScriptSig: struct {
				Asm string `json:"asm"`
				Hex string `json:"hex"`
			}{Asm: "6582895 1 746578742f706c61696e 1 deadbeef"}},
		},
	}
	chain.txs["genesis"] = genesis

	w := New(chain, 0, 0)
	res, err := w.Walk(context.Background(), "genesis", nil, "")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if !res.Truncated {
		t.Fatal("expected truncated result for mempool-only ancestor")
	}
	if res.Hex != "deadbeef" {
		t.Fatalf("expected partial hex preserved, got %q", res.Hex)
	}
}

func TestWalkMissingGenesisSentinelFails(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	genesis := &rpc.TxVerbose{
		Txid:      "genesis",
		BlockHash: "h100",
		Vin: []rpc.TxIn{
			{ScriptSig: struct {
				Asm string `json:"asm"`
				Hex string `json:"hex"`
			}{Asm: "OP_DUP OP_HASH160"}},
		},
	}
	chain.txs["genesis"] = genesis

	w := New(chain, 0, 0)
	_, err := w.Walk(context.Background(), "genesis", nil, "")
	if err == nil {
		t.Fatal("expected NotDoginal error")
	}
}
