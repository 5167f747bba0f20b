// Package wallet implements the flat UTXO wallet the inscription builder and
// broadcaster spend from: a single secp256k1 keypair, its derived address,
// and an unordered, deduplicated UTXO set persisted as JSON next to the
// pending broadcast journal.
//
// This is a deliberately smaller model than an HD wallet: Dogecoin
// inscriptions need exactly one signing key, not a keypath hierarchy, so the
// shape here follows the coin-selection and bookkeeping half of a
// rpctest-style in-memory wallet adapted to plain WIF keys instead of an HD
// root.
package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
)

// spendSize is the largest number of bytes a sigScript spending a P2PKH
// output requires: OP_DATA_72 <sig> OP_DATA_33 <pubkey>, rounded up.
const spendSize = 1 + 73 + 1 + 33

// UTXO is one spendable output owned by the wallet.
type UTXO struct {
	Txid     string `json:"txid"`
	Vout     uint32 `json:"vout"`
	Script   []byte `json:"script"`
	Satoshis int64  `json:"satoshis"`
}

func (u UTXO) key() string {
	return u.Txid + ":" + strconv.FormatUint(uint64(u.Vout), 10)
}

// outpointState is the on-disk representation of the wallet.
type outpointState struct {
	WIF     string `json:"wif"`
	Address string `json:"address"`
	UTXOs   []UTXO `json:"utxos"`
}

// Wallet is a flat, single-key UTXO wallet backed by a JSON file.
type Wallet struct {
	path   string
	params *chaincfg.Params

	mu      sync.Mutex
	privKey *btcec.PrivateKey
	wif     *btcutil.WIF
	addr    btcutil.Address
	utxos   map[string]UTXO
}

// Load reads the wallet state file at path. The file must already exist and
// contain a WIF-encoded private key; Load does not generate keys (Init
// creates a new wallet file).
func Load(path string, params *chaincfg.Params) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "read wallet state %s", path)
	}

	var state outpointState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "parse wallet state %s", path)
	}

	wif, err := btcutil.DecodeWIF(state.WIF)
	if err != nil {
		return nil, doginals.Newf(doginals.KindInvalidInput, err, "decode wallet WIF")
	}

	addr, err := btcutil.DecodeAddress(state.Address, params)
	if err != nil {
		return nil, doginals.Newf(doginals.KindInvalidInput, err, "decode wallet address %s", state.Address)
	}

	w := &Wallet{
		path:    path,
		params:  params,
		privKey: wif.PrivKey,
		wif:     wif,
		addr:    addr,
		utxos:   make(map[string]UTXO, len(state.UTXOs)),
	}

	// De-duplicate on load: (txid, vout) is the uniqueness key, per the
	// wallet state invariant.
	for _, u := range state.UTXOs {
		w.utxos[u.key()] = u
	}

	return w, nil
}

// PrivateKey returns the wallet's signing key.
func (w *Wallet) PrivateKey() *btcec.PrivateKey {
	return w.privKey
}

// Address returns the wallet's own address, used for change outputs.
func (w *Wallet) Address() btcutil.Address {
	return w.addr
}

// Balance returns the sum of all known UTXOs' satoshi values.
func (w *Wallet) Balance() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	var total int64
	for _, u := range w.utxos {
		total += u.Satoshis
	}
	return total
}

// UTXOs returns a snapshot copy of the wallet's spendable outputs.
func (w *Wallet) UTXOs() []UTXO {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]UTXO, 0, len(w.utxos))
	for _, u := range w.utxos {
		out = append(out, u)
	}
	return out
}

// Selection is the result of a coin-selection pass: the inputs chosen and
// the change, if any, owed back to the wallet.
type Selection struct {
	Inputs    []UTXO
	ChangeSat int64
}

// SelectCoins greedily selects UTXOs to cover amt plus the fee the
// resulting transaction will incur at feeRatePerKB, assuming baseSize bytes
// of fixed transaction overhead (outputs, version, locktime) before inputs
// are added. It mirrors the teacher wallet's fundTx: accumulate inputs
// until the selected amount covers amt plus the fee for the transaction
// size so far, then return any excess as change.
func (w *Wallet) SelectCoins(amt int64, feeRatePerKB int64, baseSize int) (Selection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		selected []UTXO
		amtSum   int64
	)

	for _, u := range w.utxos {
		selected = append(selected, u)
		amtSum += u.Satoshis

		txSize := baseSize + spendSize*len(selected)
		reqFee := int64(txSize) * feeRatePerKB / 1000
		if amtSum-reqFee < amt {
			continue
		}

		change := amtSum - amt - reqFee
		return Selection{Inputs: selected, ChangeSat: change}, nil
	}

	return Selection{}, doginals.Newf(doginals.KindInsufficientFunds, nil,
		"wallet balance %d insufficient for %d sat spend at %d sat/kB", amtSum, amt, feeRatePerKB)
}

// ApplyTx removes the UTXOs a just-built transaction consumed and, if
// it produced change back to this wallet, adds the new output. The wallet
// file is rewritten so the on-disk state always matches the last
// transaction produced, per the per-transaction rewrite contract.
func (w *Wallet) ApplyTx(spent []UTXO, change *UTXO) error {
	w.mu.Lock()
	for _, u := range spent {
		delete(w.utxos, u.key())
	}
	if change != nil {
		w.utxos[change.key()] = *change
	}
	w.mu.Unlock()

	return w.Save()
}

// ReplaceUTXOs overwrites the wallet's entire spendable-output set with
// fresh, the bulk mint controller's SYNC step: the node's listunspent view
// is authoritative after a chain-limit recovery, superseding whatever this
// wallet had bookkept locally. The wallet file is rewritten.
func (w *Wallet) ReplaceUTXOs(fresh []UTXO) error {
	w.mu.Lock()
	w.utxos = make(map[string]UTXO, len(fresh))
	for _, u := range fresh {
		w.utxos[u.key()] = u
	}
	w.mu.Unlock()

	return w.Save()
}

// Save atomically rewrites the wallet state file.
func (w *Wallet) Save() error {
	w.mu.Lock()
	state := outpointState{
		WIF:     w.wif.String(),
		Address: w.addr.EncodeAddress(),
		UTXOs:   make([]UTXO, 0, len(w.utxos)),
	}
	for _, u := range w.utxos {
		state.UTXOs = append(state.UTXOs, u)
	}
	w.mu.Unlock()

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "marshal wallet state")
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "write wallet state temp file")
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "rename wallet state into place")
	}
	return nil
}

// Init creates a new wallet state file from a freshly generated key if none
// exists yet at path, otherwise is a no-op. addr is derived as a P2PKH
// address for params.
func Init(path string, params *chaincfg.Params) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "create wallet directory")
	}

	key, err := btcec.NewPrivateKey()
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "generate wallet key")
	}

	wif, err := btcutil.NewWIF(key, params, true)
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "encode wallet WIF")
	}

	pubKeyHash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(pubKeyHash, params)
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "derive wallet address")
	}

	state := outpointState{WIF: wif.String(), Address: addr.EncodeAddress(), UTXOs: []UTXO{}}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "marshal new wallet state")
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "write new wallet state")
	}

	log.Infof("initialized new wallet at %s with address %s", path, addr.EncodeAddress())
	return nil
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
