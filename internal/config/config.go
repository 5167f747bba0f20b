// Package config resolves the process's run-time configuration — node RPC
// credentials, network selection, fee rate, and on-disk locations — from
// environment variables (with documented defaults), using go-flags' env-tag
// support so the same struct also accepts command-line overrides.
package config

import (
	btcchaincfg "github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"

	dogechaincfg "github.com/H3imdall-dev/Dogecoin-Tools/chaincfg"
	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
)

// Defaults mirror a locally-run Dogecoin Core node's conventional RPC
// settings.
const (
	DefaultRPCHost     = "127.0.0.1:22555"
	DefaultNetwork     = "mainnet"
	DefaultFeeRate     = int64(100_000_000) // base units per kB
	DefaultContentDir  = "."
	DefaultWalletDir   = "."
	DefaultDepthBlocks = 5000
	DefaultMaxHops     = 20000
)

// Config is the full set of environment-driven settings this system reads
// at startup.
type Config struct {
	RPCHost string `long:"rpchost" env:"DOGE_RPC_HOST" description:"host:port of the Dogecoin Core-compatible JSON-RPC endpoint"`
	RPCUser string `long:"rpcuser" env:"DOGE_RPC_USER" description:"JSON-RPC basic auth username"`
	RPCPass string `long:"rpcpass" env:"DOGE_RPC_PASS" description:"JSON-RPC basic auth password"`
	Network string `long:"network" env:"DOGE_NETWORK" description:"mainnet or testnet"`
	FeeRate int64  `long:"feerate" env:"DOGE_FEE_RATE" description:"fee rate in base units per kB, overriding the builder's default"`

	ContentDir  string `long:"contentdir" description:"root directory holding content/ and its master index"`
	WalletDir   string `long:"walletdir" description:"directory holding .wallet.json and pending-txs.json"`
	DepthBlocks int64  `long:"depthblocks" description:"blocks the chain walker scans forward from a hop's confirming block before giving up on finding the next hop"`
	MaxHops     int64  `long:"maxhops" description:"maximum chain-hop count before a walk is treated as truncated"`
}

// applyDefaults fills any zero-valued field with its documented default.
func (c *Config) applyDefaults() {
	if c.RPCHost == "" {
		c.RPCHost = DefaultRPCHost
	}
	if c.Network == "" {
		c.Network = DefaultNetwork
	}
	if c.FeeRate == 0 {
		c.FeeRate = DefaultFeeRate
	}
	if c.ContentDir == "" {
		c.ContentDir = DefaultContentDir
	}
	if c.WalletDir == "" {
		c.WalletDir = DefaultWalletDir
	}
	if c.DepthBlocks == 0 {
		c.DepthBlocks = DefaultDepthBlocks
	}
	if c.MaxHops == 0 {
		c.MaxHops = DefaultMaxHops
	}
}

// Load parses argv (os.Args[1:] in production, any slice in tests) against
// environment-variable fallbacks and documented defaults.
func Load(argv []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default|flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(argv); err != nil {
		return nil, doginals.Newf(doginals.KindInvalidInput, err, "parse configuration")
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Params resolves the configured network name to its chain parameters,
// registering both networks with btcsuite's global chaincfg registry on
// first use so address decoding recognizes them.
func (c *Config) Params() (*btcchaincfg.Params, error) {
	if err := dogechaincfg.Register(); err != nil {
		return nil, doginals.Newf(doginals.KindInvalidInput, err, "register chain parameters")
	}
	return dogechaincfg.ByNetwork(c.Network), nil
}
