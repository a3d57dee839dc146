package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func writeConfig(t *testing.T, body string) string {
	p := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	p := writeConfig(t, `
chain_id: 5
log_level: debug
owner_key: "0x`+ownerKey+`"
wallets:
  - "0x00000000000000000000000000000000000b0b01"
market:
  protocol_fee: 250
  fee_receiver: "0x0000000000000000000000000000000000000da4"
  native_payments: true
feed:
  listen: "127.0.0.1:9000"
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), cfg.ChainID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(250), cfg.Market.ProtocolFee)
	assert.True(t, cfg.Market.NativePayments)
	assert.Equal(t, uint64(15552000), cfg.Market.LockPeriod)
	assert.Equal(t, "127.0.0.1:9000", cfg.Feed.Listen)
	assert.Equal(t, []common.Address{common.HexToAddress("0xb0b01")}, cfg.WalletAddresses())

	key, err := cfg.Key()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	assert.Equal(t, common.HexToAddress("0xda4"), cfg.FeeReceiverAddress(owner))
}

func TestEnvOverrides(t *testing.T) {
	p := writeConfig(t, "owner_key: "+ownerKey+"\n")
	t.Setenv("MARKET_CHAIN_ID", "7")
	t.Setenv("MARKET_MARKET_PROTOCOL_FEE", "300")
	t.Setenv("MARKET_WALLETS", "0x0000000000000000000000000000000000000a01,0x0000000000000000000000000000000000000a02")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.ChainID)
	assert.Equal(t, uint64(300), cfg.Market.ProtocolFee)
	assert.Len(t, cfg.WalletAddresses(), 2)

	key, err := cfg.Key()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	assert.Equal(t, owner, cfg.FeeReceiverAddress(owner))
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("MARKET_OWNER_KEY", ownerKey)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.ChainID)
	assert.Equal(t, ":8546", cfg.Feed.Listen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{ChainID: 1, LogLevel: "info", OwnerKey: ownerKey}
	}

	c := valid()
	require.NoError(t, c.Validate())

	cases := map[string]func(c *Config){
		"zero chain id":       func(c *Config) { c.ChainID = 0 },
		"bad log level":       func(c *Config) { c.LogLevel = "loud" },
		"missing owner key":   func(c *Config) { c.OwnerKey = "" },
		"malformed owner key": func(c *Config) { c.OwnerKey = "0x1234" },
		"bad wallet":          func(c *Config) { c.Wallets = []string{"0xnope"} },
		"fee too high":        func(c *Config) { c.Market.ProtocolFee = 5001 },
		"bad fee receiver":    func(c *Config) { c.Market.FeeReceiver = "receiver" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
