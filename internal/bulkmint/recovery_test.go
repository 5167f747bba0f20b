package bulkmint

import (
	"context"
	"testing"

	"github.com/H3imdall-dev/Dogecoin-Tools/internal/rpc"
)

// chainNodeClient is a minimal NodeClient fake whose GetRawTransactionVerbose
// walks a fixed map of txid -> tx, for exercising the genesis-ancestor walk
// and reveal-scan independently of the wave state machine.
type chainNodeClient struct {
	fakeNodeClient
	txs map[string]*rpc.TxVerbose
}

func (c *chainNodeClient) GetRawTransactionVerbose(ctx context.Context, txid string) (*rpc.TxVerbose, error) {
	tx, ok := c.txs[txid]
	if !ok {
		return nil, errNotFound
	}
	return tx, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "tx not found" }

func TestFindGenesisAncestorWalksBackToCommit(t *testing.T) {
	t.Parallel()

	// reveal -> link1 -> genesis (1 input, 2 outputs)
	client := &chainNodeClient{txs: map[string]*rpc.TxVerbose{
		"reveal": {Txid: "reveal", Vin: []rpc.TxIn{{Txid: "link1"}}, Vout: []rpc.TxOut{{N: 0}}},
		"link1":  {Txid: "link1", Vin: []rpc.TxIn{{Txid: "genesis"}, {Txid: "wallet-funding"}}, Vout: []rpc.TxOut{{N: 0}, {N: 1}}},
		"genesis": {
			Txid: "genesis",
			Vin:  []rpc.TxIn{{Txid: "funding-utxo"}},
			Vout: []rpc.TxOut{{N: 0}, {N: 1}},
		},
	}}

	ancestor, err := findGenesisAncestor(context.Background(), client, "reveal")
	if err != nil {
		t.Fatalf("findGenesisAncestor: %v", err)
	}
	if ancestor != "genesis" {
		t.Fatalf("ancestor = %q, want %q", ancestor, "genesis")
	}
}

func TestResolveRevealTxidFindsSpenderOfAncestor(t *testing.T) {
	t.Parallel()

	client := &chainNodeClient{
		txs: map[string]*rpc.TxVerbose{
			"known-good": {Txid: "known-good", Vin: []rpc.TxIn{{Txid: "genesis"}}, Vout: []rpc.TxOut{{N: 0}}},
			"genesis":    {Txid: "genesis", Vin: []rpc.TxIn{{Txid: "funding"}}, Vout: []rpc.TxOut{{N: 0}, {N: 1}}},
			"decoy":      {Txid: "decoy", Vin: []rpc.TxIn{{Txid: "somethingelse"}}},
			"the-reveal": {Txid: "the-reveal", Vin: []rpc.TxIn{{Txid: "genesis"}}},
		},
	}
	client.fakeNodeClient.walletTxs = []rpc.WalletTx{
		{Txid: "decoy"},
		{Txid: "the-reveal"},
	}

	txid, err := ResolveRevealTxid(context.Background(), client, "known-good")
	if err != nil {
		t.Fatalf("ResolveRevealTxid: %v", err)
	}
	if txid != "the-reveal" {
		t.Fatalf("txid = %q, want %q", txid, "the-reveal")
	}
}
