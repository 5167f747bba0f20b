// Package rpc is a typed JSON-RPC wrapper over a Dogecoin Core-compatible
// node, built on top of btcsuite/btcd's generic rpcclient transport.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
)

// DefaultTimeout is the default per-call RPC timeout per the concurrency
// model's "individual RPC calls have a 30-second default timeout" rule.
const DefaultTimeout = 30 * time.Second

// Config describes how to reach the node.
type Config struct {
	Host    string
	User    string
	Pass    string
	UseTLS  bool
	Timeout time.Duration
}

// Client is a thin, typed façade over rpcclient.Client exposing only the
// node methods this system consumes.
type Client struct {
	rpc     *rpcclient.Client
	timeout time.Duration
}

// New dials the node. The connection is HTTP POST + basic auth, matching
// every Bitcoin-Core-derived node's JSON-RPC surface.
func New(cfg Config) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   !cfg.UseTLS,
	}

	c, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, doginals.Newf(doginals.KindRPCUnavailable, err, "connect to %s", cfg.Host)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{rpc: c, timeout: timeout}, nil
}

// Shutdown releases the underlying connection.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}

func marshalParams(params ...any) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, len(params))
	for i, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return raw, nil
}

// call issues a raw JSON-RPC request and unmarshals the result into out
// (which may be nil when the caller only cares about success/failure).
func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	log.Tracef("rpc call %s", method)

	raw, err := marshalParams(params...)
	if err != nil {
		return doginals.Newf(doginals.KindInvalidInput, err, "marshal params for %s", method)
	}

	done := make(chan error, 1)
	var result json.RawMessage
	go func() {
		r, callErr := c.rpc.RawRequest(method, raw)
		result = r
		done <- callErr
	}()

	select {
	case <-ctx.Done():
		return doginals.Newf(doginals.KindRPCUnavailable, ctx.Err(), "%s timed out", method)
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
	}

	if out == nil || len(result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return doginals.Newf(doginals.KindRPCError, err, "unmarshal %s result", method)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// GetRawTransactionVerbose fetches a transaction in verbose form.
func (c *Client) GetRawTransactionVerbose(ctx context.Context, txid string) (*TxVerbose, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var tx TxVerbose
	if err := c.call(ctx, "getrawtransaction", &tx, txid, true); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetBlockHash returns the hash of the block at the given height.
func (c *Client) GetBlockHash(ctx context.Context, height int64) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var hash string
	if err := c.call(ctx, "getblockhash", &hash, height); err != nil {
		return "", err
	}
	return hash, nil
}

// GetBlockCount returns the current chain tip height, used by the chain
// walker to know when it has run out of blocks to scan.
func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var height int64
	if err := c.call(ctx, "getblockcount", &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetBlockVerbose fetches a block (with its full transaction id list) in
// verbose form.
func (c *Client) GetBlockVerbose(ctx context.Context, hash string) (*BlockVerbose, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var block BlockVerbose
	if err := c.call(ctx, "getblock", &block, hash, true); err != nil {
		return nil, err
	}
	return &block, nil
}

// ListUnspent lists spendable outputs, optionally scoped to a set of
// addresses.
func (c *Client) ListUnspent(ctx context.Context, minConf, maxConf int, addrs []string) ([]Utxo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if addrs == nil {
		addrs = []string{}
	}

	var utxos []Utxo
	if err := c.call(ctx, "listunspent", &utxos, minConf, maxConf, addrs); err != nil {
		return nil, err
	}
	return utxos, nil
}

// SendRawTransaction broadcasts a serialized transaction and returns its
// txid. The returned error, on rejection, carries the node's raw message so
// callers can pattern-match on known broadcast error strings.
func (c *Client) SendRawTransaction(ctx context.Context, txHex string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var txid string
	if err := c.call(ctx, "sendrawtransaction", &txid, txHex); err != nil {
		return "", err
	}
	return txid, nil
}

// TransactionResult is the decoded shape of a gettransaction response.
type TransactionResult struct {
	Txid          string `json:"txid"`
	Confirmations int64  `json:"confirmations"`
	Details       []struct {
		Address  string  `json:"address"`
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
		Label    string  `json:"label"`
	} `json:"details"`
}

// GetTransaction fetches wallet-level detail (confirmations, category) for
// one of the wallet's own transactions.
func (c *Client) GetTransaction(ctx context.Context, txid string, includeWatchOnly bool) (*TransactionResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var tx TransactionResult
	if err := c.call(ctx, "gettransaction", &tx, txid, includeWatchOnly); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetRawMempool returns the txids currently sitting in the node's mempool.
func (c *Client) GetRawMempool(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var txids []string
	if err := c.call(ctx, "getrawmempool", &txids, false); err != nil {
		return nil, err
	}
	return txids, nil
}

// ListTransactions returns the wallet's most recent transactions, newest
// last, matching the node's native ordering.
func (c *Client) ListTransactions(ctx context.Context, account string, count, skip int, includeWatchOnly bool) ([]WalletTx, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var txs []WalletTx
	if err := c.call(ctx, "listtransactions", &txs, account, count, skip, includeWatchOnly); err != nil {
		return nil, err
	}
	return txs, nil
}

// UseLogger configures the package-wide logger used to trace RPC activity.
func UseLogger(logger slog.Logger) {
	log = logger
}
