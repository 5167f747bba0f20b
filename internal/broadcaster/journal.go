package broadcaster

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/wire"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
)

// JournalName is the fixed filename the pending journal is stored under,
// next to the wallet file.
const JournalName = "pending-txs.json"

// JournalPath returns the pending journal path for a wallet stored at
// walletPath.
func JournalPath(walletPath string) string {
	return filepath.Join(filepath.Dir(walletPath), JournalName)
}

// writeJournal serializes txs (hex-encoded, in broadcast order) to path
// using write-to-temp + rename for atomicity.
func writeJournal(path string, txs []*wire.MsgTx) error {
	hexes := make([]string, len(txs))
	for i, tx := range txs {
		raw, err := serializeTx(tx)
		if err != nil {
			return err
		}
		hexes[i] = hex.EncodeToString(raw)
	}

	b, err := json.MarshalIndent(hexes, "", "  ")
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "marshal pending journal")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "write pending journal temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "rename pending journal into place")
	}
	return nil
}

// readJournal loads a pending journal, decoding each entry back into a
// transaction. It reports os.IsNotExist via the returned bool.
func readJournal(path string) ([]*wire.MsgTx, bool, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, doginals.Newf(doginals.KindIOError, err, "read pending journal")
	}

	var hexes []string
	if err := json.Unmarshal(b, &hexes); err != nil {
		return nil, true, doginals.Newf(doginals.KindIOError, err, "parse pending journal")
	}

	txs := make([]*wire.MsgTx, len(hexes))
	for i, h := range hexes {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return nil, true, doginals.Newf(doginals.KindIOError, err, "decode pending journal entry %d", i)
		}
		tx, err := deserializeTx(raw)
		if err != nil {
			return nil, true, err
		}
		txs[i] = tx
	}
	return txs, true, nil
}

// removeJournal deletes the pending journal. Absence is not an error.
func removeJournal(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return doginals.Newf(doginals.KindIOError, err, "remove pending journal")
	}
	return nil
}

func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "serialize transaction")
	}
	return buf.Bytes(), nil
}

func deserializeTx(raw []byte) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "deserialize pending transaction")
	}
	return tx, nil
}
