// Package bulkmint drives the wave-by-wave state machine that issues many
// inscriptions against one wallet: fixed-width waves, mempool-chain-limit
// recovery via wallet-scoped confirmation waits, and multi-recipient job
// lists.
package bulkmint

import (
	"context"
	"encoding/hex"
	"math"
	"time"

	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/rpc"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/wallet"
)

const (
	// WaveSize is the largest number of inscriptions a single wave
	// attempts.
	WaveSize = 12

	// ConfirmPollInterval is how often WAIT_CONFIRM polls the node.
	ConfirmPollInterval = 30 * time.Second

	// SyncRetries is how many listunspent attempts SYNC makes before
	// aborting the job.
	SyncRetries = 5

	// SyncBackoff is the delay between SYNC retries.
	SyncBackoff = 30 * time.Second
)

// Minter issues one inscription to destAddr and reports its txid, or an
// error — which, when it wraps doginals.KindMempoolChainLimit, tells the
// controller to enter chain-limit recovery instead of aborting the job.
type Minter interface {
	MintOne(ctx context.Context, destAddr string) (txid string, err error)
}

// PendingRemover deletes a broadcaster's pending journal without
// rebroadcasting it.
type PendingRemover interface {
	DeletePending() error
}

// NodeClient is the subset of the RPC client the controller's SYNC and
// WAIT_CONFIRM states need.
type NodeClient interface {
	ListUnspent(ctx context.Context, minConf, maxConf int, addrs []string) ([]rpc.Utxo, error)
	ListTransactions(ctx context.Context, account string, count, skip int, includeWatchOnly bool) ([]rpc.WalletTx, error)
	GetTransaction(ctx context.Context, txid string, includeWatchOnly bool) (*rpc.TransactionResult, error)
	GetRawTransactionVerbose(ctx context.Context, txid string) (*rpc.TxVerbose, error)
}

// Job is one {address, count} unit of a multi-recipient mint request.
type Job struct {
	Address string
	Count   int
}

// Report accumulates a run's outcome across every job.
type Report struct {
	GrandTotal int
	Completed  int
	Txids      []string
}

// Controller runs the wave state machine against one wallet.
type Controller struct {
	minter      Minter
	pending     PendingRemover
	rpcClient   NodeClient
	wallet      *wallet.Wallet
	walletLabel string
}

// New constructs a Controller. walletLabel is the fallback match key for
// the wallet-scoped confirmation wait: a transaction whose address field
// does not match is still accepted when its label equals walletLabel.
func New(minter Minter, pending PendingRemover, rpcClient NodeClient, w *wallet.Wallet, walletLabel string) *Controller {
	return &Controller{minter: minter, pending: pending, rpcClient: rpcClient, wallet: w, walletLabel: walletLabel}
}

// RunJobs processes jobs sequentially, reporting progress against the sum
// of their counts.
func (c *Controller) RunJobs(ctx context.Context, jobs []Job) (*Report, error) {
	grandTotal := 0
	for _, j := range jobs {
		grandTotal += j.Count
	}

	report := &Report{GrandTotal: grandTotal}

	for _, job := range jobs {
		if err := c.runJob(ctx, job, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// runJob drives the WAVE/chain-limit-recovery state machine until job's
// count inscriptions have been minted to job.Address.
func (c *Controller) runJob(ctx context.Context, job Job, report *Report) error {
	remaining := job.Count

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := min(remaining, WaveSize)
		successes, chainLimited, err := c.runWave(ctx, job.Address, n)
		report.Txids = append(report.Txids, successes...)
		report.Completed += len(successes)
		remaining -= len(successes)

		if !chainLimited {
			if err != nil {
				return err
			}
			if remaining > 0 {
				if err := c.waitConfirm(ctx); err != nil {
					return err
				}
				if err := c.sync(ctx); err != nil {
					return err
				}
			}
			continue
		}

		log.Infof("wave hit mempool-chain-limit after %d successes, entering recovery", len(successes))
		if err := c.pending.DeletePending(); err != nil {
			return err
		}
		if err := c.sync(ctx); err != nil {
			return err
		}

		testN := min(remaining, WaveSize)
		testSuccesses, testChainLimited, testErr := c.runWave(ctx, job.Address, testN)
		report.Txids = append(report.Txids, testSuccesses...)
		report.Completed += len(testSuccesses)
		remaining -= len(testSuccesses)

		if testErr != nil && !testChainLimited {
			return testErr
		}
		if testChainLimited {
			if err := c.waitConfirm(ctx); err != nil {
				return err
			}
			if err := c.sync(ctx); err != nil {
				return err
			}
		}
		// Either the test wave fully succeeded (back to WAVE) or, after
		// the confirmation wait and resync above, we also return to
		// WAVE: the for loop's next iteration is exactly that state.
	}

	return nil
}

// runWave issues up to n inscriptions, stopping at the first error. An
// error classified as KindMempoolChainLimit is reported via the chainLimit
// return rather than err, per "count those successes and switch to the
// chain-limit branch".
func (c *Controller) runWave(ctx context.Context, addr string, n int) (successes []string, chainLimit bool, err error) {
	for i := 0; i < n; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return successes, false, cerr
		}

		txid, mintErr := c.minter.MintOne(ctx, addr)
		if mintErr != nil {
			if isChainLimit(mintErr) {
				return successes, true, nil
			}
			return successes, false, mintErr
		}
		successes = append(successes, txid)
	}
	return successes, false, nil
}

func isChainLimit(err error) bool {
	var derr *doginals.Error
	for e := err; e != nil; {
		if de, ok := e.(*doginals.Error); ok {
			derr = de
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return derr != nil && derr.Kind == doginals.KindMempoolChainLimit
}

// sync refreshes the wallet's UTXO view from the node, scoped to the
// wallet's own address, retrying with backoff before aborting the job.
func (c *Controller) sync(ctx context.Context) error {
	addr := c.wallet.Address().EncodeAddress()

	var lastErr error
	for attempt := 1; attempt <= SyncRetries; attempt++ {
		utxos, err := c.rpcClient.ListUnspent(ctx, 0, 9_999_999, []string{addr})
		if err == nil {
			fresh := make([]wallet.UTXO, 0, len(utxos))
			for _, u := range utxos {
				script, derr := hex.DecodeString(u.ScriptPubKey)
				if derr != nil {
					continue
				}
				fresh = append(fresh, wallet.UTXO{
					Txid:     u.Txid,
					Vout:     u.Vout,
					Script:   script,
					Satoshis: int64(math.Round(u.Amount * 1e8)),
				})
			}
			log.Debugf("sync: wallet now has %d utxos", len(fresh))
			return c.wallet.ReplaceUTXOs(fresh)
		}
		lastErr = err

		if attempt == SyncRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(SyncBackoff):
		}
	}

	return doginals.Newf(doginals.KindRPCUnavailable, lastErr, "sync wallet utxos after %d attempts", SyncRetries)
}

// waitConfirm polls every ConfirmPollInterval for the wallet's own most
// recent unconfirmed send, selected once up front, until it reaches at
// least one confirmation. If no matching unconfirmed send exists, there is
// nothing to wait for.
func (c *Controller) waitConfirm(ctx context.Context) error {
	addr := c.wallet.Address().EncodeAddress()

	txid, found, err := c.findPendingSend(ctx, addr)
	if err != nil {
		return err
	}
	if !found {
		log.Debugf("waitConfirm: no pending wallet send found, nothing to wait for")
		return nil
	}
	log.Infof("waiting for %s to confirm", txid)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx, err := c.rpcClient.GetTransaction(ctx, txid, false)
		if err != nil {
			return doginals.Newf(doginals.KindRPCError, err, "poll confirmation for %s", txid)
		}
		if tx.Confirmations >= 1 {
			log.Infof("%s confirmed", txid)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ConfirmPollInterval):
		}
	}
}

// findPendingSend selects the wallet's single unconfirmed "send" matching
// addr (or, failing that, c.walletLabel), newest first.
func (c *Controller) findPendingSend(ctx context.Context, addr string) (string, bool, error) {
	txs, err := c.rpcClient.ListTransactions(ctx, "*", 100, 0, false)
	if err != nil {
		return "", false, doginals.Newf(doginals.KindRPCError, err, "list transactions")
	}

	var best *rpc.WalletTx
	for i := range txs {
		tx := &txs[i]
		if tx.Confirmations != 0 || tx.Category != "send" {
			continue
		}
		if tx.Address != addr && (c.walletLabel == "" || tx.Label != c.walletLabel) {
			continue
		}
		// listtransactions is returned oldest-first; the last match is
		// the newest.
		best = tx
	}

	if best == nil {
		return "", false, nil
	}
	return best.Txid, true, nil
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
