package config

import (
	"os"
	"testing"
)

func withEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		old, had := os.LookupEnv(k)
		os.Setenv(k, v)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	withEnv(t, map[string]string{
		"DOGE_RPC_HOST": "",
		"DOGE_RPC_USER": "",
		"DOGE_RPC_PASS": "",
		"DOGE_NETWORK":  "",
		"DOGE_FEE_RATE": "",
	})

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCHost != DefaultRPCHost {
		t.Errorf("RPCHost = %q, want %q", cfg.RPCHost, DefaultRPCHost)
	}
	if cfg.Network != DefaultNetwork {
		t.Errorf("Network = %q, want %q", cfg.Network, DefaultNetwork)
	}
	if cfg.FeeRate != DefaultFeeRate {
		t.Errorf("FeeRate = %d, want %d", cfg.FeeRate, DefaultFeeRate)
	}
	if cfg.DepthBlocks != 5000 {
		t.Errorf("DepthBlocks = %d, want 5000", cfg.DepthBlocks)
	}
	if cfg.MaxHops != 20000 {
		t.Errorf("MaxHops = %d, want 20000", cfg.MaxHops)
	}
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	withEnv(t, map[string]string{
		"DOGE_RPC_HOST": "example.org:1234",
		"DOGE_RPC_USER": "alice",
		"DOGE_RPC_PASS": "hunter2",
		"DOGE_NETWORK":  "testnet",
		"DOGE_FEE_RATE": "50000000",
	})

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCHost != "example.org:1234" {
		t.Errorf("RPCHost = %q, want example.org:1234", cfg.RPCHost)
	}
	if cfg.RPCUser != "alice" || cfg.RPCPass != "hunter2" {
		t.Errorf("RPCUser/RPCPass = %q/%q, want alice/hunter2", cfg.RPCUser, cfg.RPCPass)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want testnet", cfg.Network)
	}
	if cfg.FeeRate != 50_000_000 {
		t.Errorf("FeeRate = %d, want 50000000", cfg.FeeRate)
	}
}

func TestLoadCommandLineOverridesEnvironment(t *testing.T) {
	withEnv(t, map[string]string{"DOGE_NETWORK": "mainnet"})

	cfg, err := Load([]string{"--network=testnet"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want testnet (flag should win over env)", cfg.Network)
	}
}

func TestParamsResolvesNetworkSelector(t *testing.T) {
	cfg := &Config{Network: "testnet"}
	params, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if params.Net == 0 {
		t.Fatal("expected non-zero network magic")
	}
}
