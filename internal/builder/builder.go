// Package builder assembles the chain of P2SH commit transactions and the
// final reveal transaction that together carry an inscription's envelope,
// funding and signing each one from a wallet's UTXO set.
package builder

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/wallet"
)

const (
	// MaxScriptElementSize bounds the declared content type's byte length.
	MaxScriptElementSize = 520

	// MaxChunkLen is the largest single payload chunk a (marker, chunk)
	// pair may carry.
	MaxChunkLen = 240

	// MaxPayloadLen bounds the serialized size of one partial envelope.
	MaxPayloadLen = 1500

	// RevealValue is the satoshi amount each P2SH output (and the final
	// reveal output) carries.
	RevealValue = 100_000

	// DefaultFeeRatePerKB is used when the caller does not override it.
	DefaultFeeRatePerKB = 100_000_000
)

// Result is the outcome of a successful build: the ordered transactions to
// broadcast (commit transactions followed by the reveal) and the
// inscription id the reveal transaction establishes.
type Result struct {
	Transactions []*wire.MsgTx
	RevealTxid   string
}

// Builder assembles inscription transaction chains against one wallet.
type Builder struct {
	wallet *wallet.Wallet
	params *chaincfg.Params
}

// New constructs a Builder over w, signing and deriving addresses for
// params.
func New(w *wallet.Wallet, params *chaincfg.Params) *Builder {
	return &Builder{wallet: w, params: params}
}

// Build lays out contentType/payload as an envelope, packs it into partial
// envelopes, and constructs+signs the full commit/reveal transaction chain
// paying destAddr. feeRatePerKB of zero selects DefaultFeeRatePerKB.
func (b *Builder) Build(ctx context.Context, destAddr btcutil.Address, contentType string, payload []byte, feeRatePerKB int64) (*Result, error) {
	if len(contentType) > MaxScriptElementSize {
		return nil, doginals.Newf(doginals.KindInvalidInput, nil, "content type %d bytes exceeds %d", len(contentType), MaxScriptElementSize)
	}
	if feeRatePerKB <= 0 {
		feeRatePerKB = DefaultFeeRatePerKB
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks := splitChunks(payload, MaxChunkLen)
	elements := buildEnvelopeElements(contentType, chunks)
	partials := packPartials(elements, MaxPayloadLen)

	pubKey := b.wallet.PrivateKey().PubKey().SerializeCompressed()

	redeemScripts := make([][]byte, len(partials))
	p2shScripts := make([][]byte, len(partials))
	for i, partial := range partials {
		redeem, err := buildRedeemScript(pubKey, len(partial))
		if err != nil {
			return nil, err
		}
		pkScript, err := p2shPkScript(redeem, b.params)
		if err != nil {
			return nil, err
		}
		redeemScripts[i] = redeem
		p2shScripts[i] = pkScript
	}

	var txs []*wire.MsgTx

	first, err := b.buildFundingTx(p2shScripts[0], feeRatePerKB)
	if err != nil {
		return nil, err
	}
	txs = append(txs, first)
	prevHash := first.TxHash()

	for i := 1; i < len(partials); i++ {
		tx, err := b.buildLinkTx(ctx, prevHash, redeemScripts[i-1], partials[i-1], p2shScripts[i], feeRatePerKB)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
		prevHash = tx.TxHash()
	}

	last := len(partials) - 1
	reveal, err := b.buildRevealTx(ctx, prevHash, redeemScripts[last], partials[last], destAddr, feeRatePerKB)
	if err != nil {
		return nil, err
	}
	txs = append(txs, reveal)

	log.Infof("built inscription chain of %d transactions, reveal %s", len(txs), reveal.TxHash())

	return &Result{Transactions: txs, RevealTxid: reveal.TxHash().String()}, nil
}

// buildFundingTx is the first transaction in the chain: purely wallet
// funded, its sole output is the first partial's P2SH lock.
func (b *Builder) buildFundingTx(p2shScript []byte, feeRatePerKB int64) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(RevealValue, p2shScript))

	baseSize := tx.SerializeSize()
	sel, err := b.wallet.SelectCoins(RevealValue, feeRatePerKB, baseSize)
	if err != nil {
		return nil, err
	}

	for _, u := range sel.Inputs {
		hash, err := chainhash.NewHashFromStr(u.Txid)
		if err != nil {
			return nil, doginals.Newf(doginals.KindInvalidInput, err, "parse utxo txid %s", u.Txid)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
	}

	var changeScript []byte
	if sel.ChangeSat > 0 {
		changeScript, err = txscript.PayToAddrScript(b.wallet.Address())
		if err != nil {
			return nil, doginals.Newf(doginals.KindIOError, err, "build change script")
		}
		tx.AddTxOut(wire.NewTxOut(sel.ChangeSat, changeScript))
	}

	if err := b.signWalletInputs(tx, sel.Inputs, 0); err != nil {
		return nil, err
	}

	return tx, b.applyWalletBookkeeping(tx, sel, changeScript)
}

// buildLinkTx spends the previous partial's P2SH output (providing that
// partial's envelope data as the unlock) and creates the next partial's
// P2SH output, topping up with wallet UTXOs to cover the fee.
func (b *Builder) buildLinkTx(ctx context.Context, prevHash chainhash.Hash, prevRedeem []byte, prevPartial []element, nextP2SH []byte, feeRatePerKB int64) (*wire.MsgTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(RevealValue, nextP2SH))

	baseSize := tx.SerializeSize() + envelopeInputSize(prevPartial, prevRedeem)
	sel, err := b.wallet.SelectCoins(0, feeRatePerKB, baseSize)
	if err != nil {
		return nil, err
	}

	for _, u := range sel.Inputs {
		hash, err := chainhash.NewHashFromStr(u.Txid)
		if err != nil {
			return nil, doginals.Newf(doginals.KindInvalidInput, err, "parse utxo txid %s", u.Txid)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
	}

	var changeScript []byte
	if sel.ChangeSat > 0 {
		changeScript, err = txscript.PayToAddrScript(b.wallet.Address())
		if err != nil {
			return nil, doginals.Newf(doginals.KindIOError, err, "build change script")
		}
		tx.AddTxOut(wire.NewTxOut(sel.ChangeSat, changeScript))
	}

	if err := b.signEnvelopeInput(tx, 0, prevPartial, prevRedeem); err != nil {
		return nil, err
	}
	if err := b.signWalletInputs(tx, sel.Inputs, 1); err != nil {
		return nil, err
	}

	return tx, b.applyWalletBookkeeping(tx, sel, changeScript)
}

// buildRevealTx spends the final partial's P2SH output and pays the reveal
// value to destAddr. Its txid is the inscription's identity.
func (b *Builder) buildRevealTx(ctx context.Context, prevHash chainhash.Hash, prevRedeem []byte, prevPartial []element, destAddr btcutil.Address, feeRatePerKB int64) (*wire.MsgTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return nil, doginals.Newf(doginals.KindInvalidInput, err, "build destination script")
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(RevealValue, destScript))

	baseSize := tx.SerializeSize() + envelopeInputSize(prevPartial, prevRedeem)
	sel, err := b.wallet.SelectCoins(0, feeRatePerKB, baseSize)
	if err != nil {
		return nil, err
	}

	for _, u := range sel.Inputs {
		hash, err := chainhash.NewHashFromStr(u.Txid)
		if err != nil {
			return nil, doginals.Newf(doginals.KindInvalidInput, err, "parse utxo txid %s", u.Txid)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
	}

	var changeScript []byte
	if sel.ChangeSat > 0 {
		changeScript, err = txscript.PayToAddrScript(b.wallet.Address())
		if err != nil {
			return nil, doginals.Newf(doginals.KindIOError, err, "build change script")
		}
		tx.AddTxOut(wire.NewTxOut(sel.ChangeSat, changeScript))
	}

	if err := b.signEnvelopeInput(tx, 0, prevPartial, prevRedeem); err != nil {
		return nil, err
	}
	if err := b.signWalletInputs(tx, sel.Inputs, 1); err != nil {
		return nil, err
	}

	return tx, b.applyWalletBookkeeping(tx, sel, changeScript)
}

// signEnvelopeInput computes the checksig signature over redeem and builds
// the scriptSig that both reveals partial's envelope data and satisfies the
// redeem script.
func (b *Builder) signEnvelopeInput(tx *wire.MsgTx, idx int, partial []element, redeem []byte) error {
	sig, err := txscript.RawTxInSignature(tx, idx, redeem, txscript.SigHashAll, b.wallet.PrivateKey())
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "sign envelope input %d", idx)
	}
	scriptSig, err := envelopeUnlockScript(partial, sig, redeem)
	if err != nil {
		return err
	}
	tx.TxIn[idx].SignatureScript = scriptSig
	return nil
}

// signWalletInputs signs the plain P2PKH wallet-funding inputs of tx
// starting at startIdx, one per entry in spent (in the same order they
// were appended to tx.TxIn).
func (b *Builder) signWalletInputs(tx *wire.MsgTx, spent []wallet.UTXO, startIdx int) error {
	for i, u := range spent {
		idx := startIdx + i
		sigScript, err := txscript.SignatureScript(tx, idx, u.Script, txscript.SigHashAll, b.wallet.PrivateKey(), true)
		if err != nil {
			return doginals.Newf(doginals.KindIOError, err, "sign wallet input %d", idx)
		}
		tx.TxIn[idx].SignatureScript = sigScript
	}
	return nil
}

// applyWalletBookkeeping removes tx's spent wallet UTXOs and records its
// change output, rewriting the wallet file.
func (b *Builder) applyWalletBookkeeping(tx *wire.MsgTx, sel wallet.Selection, changeScript []byte) error {
	var change *wallet.UTXO
	if sel.ChangeSat > 0 {
		change = &wallet.UTXO{
			Txid:     tx.TxHash().String(),
			Vout:     uint32(len(tx.TxOut) - 1),
			Script:   changeScript,
			Satoshis: sel.ChangeSat,
		}
	}
	return b.wallet.ApplyTx(sel.Inputs, change)
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
