// Package broadcaster sends a built transaction chain to a node in order,
// journaling unsent residue so a restart can resume exactly where a prior
// run left off.
package broadcaster

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"bytes"

	"github.com/btcsuite/btcd/wire"
	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
)

// Sender is the subset of the RPC client the broadcaster needs.
type Sender interface {
	SendRawTransaction(ctx context.Context, txHex string) (string, error)
}

// RetryBackoff is how long to wait before retrying a too-long-mempool-chain
// rejection when retry is enabled.
const RetryBackoff = 1 * time.Second

// Result is the outcome of a successful broadcast run.
type Result struct {
	// Txids are the broadcast or already-accepted ids, in order.
	Txids []string

	// InscriptionTxid is the second transaction's txid when more than one
	// transaction was sent, otherwise the first.
	InscriptionTxid string
}

// Broadcaster sends transaction chains to a node, journaling at
// walletPath's sibling pending-txs.json on interruption.
type Broadcaster struct {
	client     Sender
	walletPath string
}

// New constructs a Broadcaster posting through client, journaling next to
// walletPath.
func New(client Sender, walletPath string) *Broadcaster {
	return &Broadcaster{client: client, walletPath: walletPath}
}

// HasPending reports whether a pending journal exists for this
// broadcaster's wallet.
func (b *Broadcaster) HasPending() (bool, error) {
	_, exists, err := readJournal(JournalPath(b.walletPath))
	return exists, err
}

// DeletePending removes the pending journal without rebroadcasting it, for
// the bulk mint controller's DELETE_PENDING state: the journal exists
// because a prior wave was interrupted mid-broadcast by a chain-limit
// rejection, and those transactions are superseded once the controller
// resyncs and starts a fresh wave.
func (b *Broadcaster) DeletePending() error {
	return removeJournal(JournalPath(b.walletPath))
}

// ResumePending rebroadcasts a previously journaled, not-yet-sent chain.
// It is the only operation a process performs when a pending journal is
// found at startup.
func (b *Broadcaster) ResumePending(ctx context.Context) (*Result, error) {
	path := JournalPath(b.walletPath)
	txs, exists, err := readJournal(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, doginals.Newf(doginals.KindIOError, nil, "no pending journal at %s", path)
	}
	return b.broadcastChain(ctx, txs, true)
}

// Broadcast sends txs in order. allowRetry enables the too-long-mempool-chain
// backoff-and-retry loop; when false, that rejection is surfaced immediately
// as KindMempoolChainLimit.
func (b *Broadcaster) Broadcast(ctx context.Context, txs []*wire.MsgTx, allowRetry bool) (*Result, error) {
	return b.broadcastChain(ctx, txs, allowRetry)
}

func (b *Broadcaster) broadcastChain(ctx context.Context, txs []*wire.MsgTx, allowRetry bool) (*Result, error) {
	var txids []string

	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		txid, err := b.sendOne(ctx, tx, allowRetry)
		if err != nil {
			if jerr := writeJournal(JournalPath(b.walletPath), txs[i:]); jerr != nil {
				log.Errorf("failed to journal remaining transactions after broadcast error: %v", jerr)
			}
			return nil, err
		}
		txids = append(txids, txid)
		log.Infof("broadcast %d/%d: %s", i+1, len(txs), txid)
	}

	if err := removeJournal(JournalPath(b.walletPath)); err != nil {
		return nil, err
	}

	inscriptionTxid := txids[0]
	if len(txids) > 1 {
		inscriptionTxid = txids[1]
	}

	return &Result{Txids: txids, InscriptionTxid: inscriptionTxid}, nil
}

// sendOne broadcasts a single transaction, classifying the node's response
// per the broadcast error contract.
func (b *Broadcaster) sendOne(ctx context.Context, tx *wire.MsgTx, allowRetry bool) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", doginals.Newf(doginals.KindIOError, err, "serialize transaction")
	}
	txHex := hex.EncodeToString(buf.Bytes())

	for {
		txid, err := b.client.SendRawTransaction(ctx, txHex)
		if err == nil {
			return txid, nil
		}

		switch classify(err) {
		case classAlreadyAccepted:
			return tx.TxHash().String(), nil
		case classChainLimit:
			if !allowRetry {
				return "", doginals.Newf(doginals.KindMempoolChainLimit, err, "too-long-mempool-chain")
			}
			log.Debugf("too-long-mempool-chain, retrying in %s", RetryBackoff)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(RetryBackoff):
			}
		default:
			return "", doginals.Newf(doginals.KindRPCError, err, "sendrawtransaction")
		}
	}
}

type errClass int

const (
	classOther errClass = iota
	classChainLimit
	classAlreadyAccepted
)

// classify inspects a node broadcast error's message for the known string
// markers the broadcast contract reacts to.
func classify(err error) errClass {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too-long-mempool-chain"):
		return classChainLimit
	case strings.Contains(msg, "bad-txns-inputs-spent"),
		strings.Contains(msg, "already in block chain"),
		strings.Contains(msg, "already have transaction"):
		return classAlreadyAccepted
	default:
		return classOther
	}
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
