package bulkmint

import (
	"context"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/rpc"
)

// maxAncestorHops bounds the genesis-ancestor walk so a malformed or
// unexpectedly deep input chain fails loudly instead of looping forever.
const maxAncestorHops = 500

// ResolveRevealTxid recovers the correct reveal txid for a file inscription
// after a chain-limit interruption: it walks knownGoodTxid's input history
// back to the genesis-looking commit transaction (exactly one input, two
// outputs, not a coinbase), then scans the wallet's recent transactions for
// the one that spends that ancestor — the reveal.
func ResolveRevealTxid(ctx context.Context, client NodeClient, knownGoodTxid string) (string, error) {
	ancestor, err := findGenesisAncestor(ctx, client, knownGoodTxid)
	if err != nil {
		return "", err
	}

	recent, err := client.ListTransactions(ctx, "*", 100, 0, false)
	if err != nil {
		return "", doginals.Newf(doginals.KindRPCError, err, "list recent transactions")
	}

	// Newest first: listtransactions returns oldest-first, so scan in
	// reverse to find the most recent spender of the ancestor.
	for i := len(recent) - 1; i >= 0; i-- {
		tx, err := client.GetRawTransactionVerbose(ctx, recent[i].Txid)
		if err != nil {
			continue
		}
		for _, in := range tx.Vin {
			if in.Txid == ancestor {
				return tx.Txid, nil
			}
		}
	}

	return "", doginals.Newf(doginals.KindTruncated, nil,
		"no recent wallet transaction spends genesis ancestor %s", ancestor)
}

// findGenesisAncestor walks backward from txid's first input until it
// reaches a transaction with exactly one input, exactly two outputs, and no
// coinbase marker.
func findGenesisAncestor(ctx context.Context, client NodeClient, txid string) (string, error) {
	cur := txid
	for hop := 0; hop < maxAncestorHops; hop++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		tx, err := client.GetRawTransactionVerbose(ctx, cur)
		if err != nil {
			return "", doginals.Newf(doginals.KindRPCError, err, "fetch %s", cur)
		}

		if len(tx.Vin) == 1 && len(tx.Vout) == 2 && tx.Vin[0].Coinbase == "" {
			return tx.Txid, nil
		}
		if len(tx.Vin) == 0 || tx.Vin[0].Coinbase != "" {
			return "", doginals.Newf(doginals.KindTruncated, nil, "walked to a coinbase without finding a genesis ancestor")
		}

		cur = tx.Vin[0].Txid
	}

	return "", doginals.Newf(doginals.KindTruncated, nil, "genesis ancestor not found within %d hops", maxAncestorHops)
}
