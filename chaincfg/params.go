// Package chaincfg defines the Dogecoin network parameters this tool needs
// to validate addresses and WIF keys, following the same registration
// pattern every Bitcoin Core-derived altcoin fork in the wild uses on top
// of btcsuite/btcd/chaincfg.
package chaincfg

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var bigOne = big.NewInt(1)

// dogePowLimit is the highest proof of work value a Dogecoin block can
// have. It is not consensus-critical for this tool (PoW is never verified
// here, per the non-goals) but chaincfg.Params requires a value.
var dogePowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

func mustHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}

// genesisCoinbaseTx is illustrative: this tool never validates a genesis
// block or its proof of work, so the exact historical bytes are not
// load-bearing. TODO: swap in the byte-exact mainnet genesis coinbase if a
// future consumer needs GenesisHash() to match chain reality.
var genesisCoinbaseTx = wire.MsgTx{
	Version: 1,
	TxIn: []*wire.TxIn{
		{
			PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
			SignatureScript:  []byte("Nintondo"),
			Sequence:         0xffffffff,
		},
	},
	TxOut:    []*wire.TxOut{{Value: 88 * 1e8}},
	LockTime: 0,
}

var genesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		Timestamp:  time.Unix(1386325540, 0),
		Bits:       0x1e0ffff0,
		Nonce:      99943,
		MerkleRoot: genesisCoinbaseTx.TxHash(),
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// MainNetParams defines the network parameters for the Dogecoin main
// network.
var MainNetParams = chaincfg.Params{
	Name:        "doge-mainnet",
	Net:         0xc0c0c0c0,
	DefaultPort: "22556",

	GenesisBlock:     &genesisBlock,
	GenesisHash:      mustHashPtr(genesisBlock.BlockHash().String()),
	PowLimit:         dogePowLimit,
	PowLimitBits:     0x1e0ffff0,
	CoinbaseMaturity: 30,

	SubsidyReductionInterval: 100000,
	TargetTimespan:           time.Hour,
	TargetTimePerBlock:       time.Minute,
	RetargetAdjustmentFactor: 4,

	RelayNonStdTxs: false,

	PubKeyHashAddrID: 0x1e, // addresses start with 'D'
	ScriptHashAddrID: 0x16, // addresses start with '9' or 'A'
	PrivateKeyID:     0x9e, // WIF starts with '6' or 'Q'

	HDPrivateKeyID: [4]byte{0x02, 0xfa, 0xca, 0xfd},
	HDPublicKeyID:  [4]byte{0x02, 0xfa, 0xca, 0xfd},

	HDCoinType: 3,
}

// TestNetParams defines the network parameters for the Dogecoin test
// network.
var TestNetParams = chaincfg.Params{
	Name:        "doge-testnet",
	Net:         0xfcc1b7dc,
	DefaultPort: "44556",

	GenesisBlock:     &genesisBlock,
	GenesisHash:      mustHashPtr(genesisBlock.BlockHash().String()),
	PowLimit:         dogePowLimit,
	PowLimitBits:     0x1e0ffff0,
	CoinbaseMaturity: 30,

	SubsidyReductionInterval: 100000,
	TargetTimespan:           time.Hour,
	TargetTimePerBlock:       time.Minute,
	RetargetAdjustmentFactor: 4,

	RelayNonStdTxs: true,

	PubKeyHashAddrID: 0x71,
	ScriptHashAddrID: 0xc4,
	PrivateKeyID:     0xf1,

	HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},

	HDCoinType: 1,
}

func mustHashPtr(s string) *chainhash.Hash {
	h := mustHash(s)
	return &h
}

// Register registers both the main and test network parameters with
// btcsuite/btcd/chaincfg so address decoding functions recognize them. It
// is safe to call more than once; subsequent calls after the first
// successful registration are ignored.
func Register() error {
	for _, params := range []*chaincfg.Params{&MainNetParams, &TestNetParams} {
		if err := chaincfg.Register(params); err != nil && err != chaincfg.ErrDuplicateNet {
			return err
		}
	}
	return nil
}

// ByNetwork resolves a network selector ("mainnet" or "testnet") to its
// Params.
func ByNetwork(network string) *chaincfg.Params {
	if network == "testnet" {
		return &TestNetParams
	}
	return &MainNetParams
}
