package rpc

// TxIn mirrors the subset of a verbose getrawtransaction vin entry the
// decoder needs: the previous outpoint and the scriptSig assembly.
type TxIn struct {
	Txid      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	ScriptSig struct {
		Asm string `json:"asm"`
		Hex string `json:"hex"`
	} `json:"scriptSig"`
	Coinbase string `json:"coinbase"`
}

// TxOut mirrors the subset of a verbose getrawtransaction vout entry the
// chain walker needs to follow a spend.
type TxOut struct {
	Value        float64 `json:"value"`
	N            uint32  `json:"n"`
	ScriptPubKey struct {
		Asm string `json:"asm"`
		Hex string `json:"hex"`
	} `json:"scriptPubKey"`
}

// TxVerbose is the decoded shape of a verbose getrawtransaction response.
type TxVerbose struct {
	Txid          string  `json:"txid"`
	Hash          string  `json:"hash"`
	Vin           []TxIn  `json:"vin"`
	Vout          []TxOut `json:"vout"`
	BlockHash     string  `json:"blockhash"`
	Confirmations int64   `json:"confirmations"`
	Time          int64   `json:"time"`
}

// InMempool reports whether the transaction has not yet been confirmed
// into a block, per §4.2's mempool-ancestor termination rule.
func (t *TxVerbose) InMempool() bool {
	return t.BlockHash == ""
}

// BlockVerbose is the decoded shape of a verbose getblock response, trimmed
// to what the chain walker's forward scan needs.
type BlockVerbose struct {
	Hash   string   `json:"hash"`
	Height int64    `json:"height"`
	Tx     []string `json:"tx"`
}

// Utxo is one entry of a listunspent response.
type Utxo struct {
	Txid          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Address       string  `json:"address"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Amount        float64 `json:"amount"`
	Confirmations int64   `json:"confirmations"`
	Spendable     bool    `json:"spendable"`
}

// WalletTx is one entry of a gettransaction/listtransactions response,
// trimmed to what the bulk mint controller's wallet-scoped confirmation
// wait needs.
type WalletTx struct {
	Txid          string  `json:"txid"`
	Address       string  `json:"address"`
	Label         string  `json:"label"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	Confirmations int64   `json:"confirmations"`
	Time          int64   `json:"time"`
}
