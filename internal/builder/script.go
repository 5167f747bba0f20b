package builder

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
)

// buildRedeemScript constructs the redeem half of a partial's P2SH lock:
// the signer's public key, OP_CHECKSIGVERIFY, one OP_DROP per element the
// partial will push when spent, and OP_TRUE.
func buildRedeemScript(pubKey []byte, numElements int) ([]byte, error) {
	b := txscript.NewScriptBuilder().
		AddData(pubKey).
		AddOp(txscript.OP_CHECKSIGVERIFY)
	for i := 0; i < numElements; i++ {
		b.AddOp(txscript.OP_DROP)
	}
	b.AddOp(txscript.OP_TRUE)

	script, err := b.Script()
	if err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "build redeem script")
	}
	return script, nil
}

// p2shPkScript hashes redeem and returns the standard P2SH locking script
// paying to it.
func p2shPkScript(redeem []byte, params *chaincfg.Params) ([]byte, error) {
	hash := btcutil.Hash160(redeem)
	addr, err := btcutil.NewAddressScriptHashFromHash(hash, params)
	if err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "derive P2SH address")
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "build P2SH pkScript")
	}
	return script, nil
}

// envelopeUnlockScript builds the scriptSig that spends a partial's P2SH
// output: the partial's own elements (visible on-chain as the envelope
// payload), the checksig signature, and the redeem script bytes.
func envelopeUnlockScript(partial []element, sig []byte, redeem []byte) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	for _, e := range partial {
		if e.isInt {
			b.AddInt64(e.n)
		} else {
			b.AddData(e.data)
		}
	}
	b.AddData(sig)
	b.AddData(redeem)

	script, err := b.Script()
	if err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "build envelope unlock script")
	}
	return script, nil
}

// envelopeInputSize estimates the serialized byte length of
// envelopeUnlockScript's output, for fee budgeting before the signature is
// actually available.
func envelopeInputSize(partial []element, redeem []byte) int {
	size := 0
	for _, e := range partial {
		size += pushSize(e)
	}
	size += pushDataSize(72) // DER signature + sighash-type byte, worst case
	size += pushDataSize(len(redeem))
	return size
}
