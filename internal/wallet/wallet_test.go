package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

func newTestWallet(t *testing.T) (*Wallet, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.json")
	if err := Init(path, &chaincfg.MainNetParams); err != nil {
		t.Fatalf("Init: %v", err)
	}
	w, err := Load(path, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return w, path
}

func TestInitThenLoadRoundTrips(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t)
	if w.Balance() != 0 {
		t.Fatalf("balance = %d, want 0", w.Balance())
	}
	if w.Address() == nil {
		t.Fatal("expected a derived address")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.json")
	if err := Init(path, &chaincfg.MainNetParams); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	first, err := Load(path, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := Init(path, &chaincfg.MainNetParams); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	second, err := Load(path, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if first.Address().EncodeAddress() != second.Address().EncodeAddress() {
		t.Fatal("Init must not regenerate an existing wallet's key")
	}
}

func TestDeduplicatesUTXOsOnLoad(t *testing.T) {
	t.Parallel()

	w, path := newTestWallet(t)
	dup := UTXO{Txid: "abc", Vout: 0, Satoshis: 1000}
	w.utxos[dup.key()] = dup
	if err := w.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Append a second copy of the same outpoint to the file on disk.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	var state outpointState
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("parse state: %v", err)
	}
	state.UTXOs = append(state.UTXOs, dup)
	if raw, err = json.Marshal(state); err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write state: %v", err)
	}

	reloaded, err := Load(path, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.UTXOs()) != 1 {
		t.Fatalf("utxos = %d, want 1", len(reloaded.UTXOs()))
	}
	if reloaded.Balance() != 1000 {
		t.Fatalf("balance = %d, want 1000", reloaded.Balance())
	}
}

func TestSelectCoinsCoversAmountPlusFee(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t)
	w.utxos["a"] = UTXO{Txid: "a", Vout: 0, Satoshis: 50_000}
	w.utxos["b"] = UTXO{Txid: "b", Vout: 0, Satoshis: 60_000}

	sel, err := w.SelectCoins(100_000, 10_000, 10)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if len(sel.Inputs) == 0 {
		t.Fatal("expected at least one input selected")
	}
	var total int64
	for _, in := range sel.Inputs {
		total += in.Satoshis
	}
	if total < 100_000 {
		t.Fatalf("selected total %d below requested amount", total)
	}
	if sel.ChangeSat < 0 {
		t.Fatalf("negative change %d", sel.ChangeSat)
	}
}

func TestSelectCoinsInsufficientFunds(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t)
	w.utxos["a"] = UTXO{Txid: "a", Vout: 0, Satoshis: 100}

	_, err := w.SelectCoins(1_000_000, 100_000, 10)
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
}

func TestApplyTxRemovesSpentAndAddsChange(t *testing.T) {
	t.Parallel()

	w, path := newTestWallet(t)
	spent := UTXO{Txid: "spend-me", Vout: 0, Satoshis: 5000}
	w.utxos[spent.key()] = spent

	change := UTXO{Txid: "newtx", Vout: 1, Satoshis: 1000}
	if err := w.ApplyTx([]UTXO{spent}, &change); err != nil {
		t.Fatalf("ApplyTx: %v", err)
	}

	if w.Balance() != 1000 {
		t.Fatalf("balance = %d, want 1000", w.Balance())
	}

	reloaded, err := Load(path, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("Load after ApplyTx: %v", err)
	}
	if reloaded.Balance() != 1000 {
		t.Fatalf("persisted balance = %d, want 1000", reloaded.Balance())
	}
}
