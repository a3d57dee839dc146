// Package config loads the node configuration from a YAML file with
// MARKET_ environment overrides.
package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding the file,
// MARKET_MARKET_PROTOCOL_FEE for market.protocol_fee.
const EnvPrefix = "MARKET"

// Config is the root configuration of a node.
type Config struct {
	// ChainID is part of every order signature domain.
	ChainID uint64 `mapstructure:"chain_id"`
	// StartTime pins the block time to a unix timestamp, 0 follows
	// the system clock.
	StartTime uint64 `mapstructure:"start_time"`
	// LogLevel is one of trace, debug, info, warn, error, crit.
	LogLevel string `mapstructure:"log_level"`
	// OwnerKey is the hex private key of the account deploying and
	// owning the market contracts.
	OwnerKey string `mapstructure:"owner_key"`
	// Wallets are whitelisted at startup.
	Wallets []string `mapstructure:"wallets"`
	Market  MarketConfig `mapstructure:"market"`
	Feed    FeedConfig   `mapstructure:"feed"`
}

// MarketConfig contains the exchange settings.
type MarketConfig struct {
	// ProtocolFee is charged on both legs in basis points.
	ProtocolFee uint64 `mapstructure:"protocol_fee"`
	// FeeReceiver receives protocol fees, the owner when empty.
	FeeReceiver string `mapstructure:"fee_receiver"`
	// LockPeriod in seconds applies to tokens deployed by the node.
	LockPeriod uint64 `mapstructure:"lock_period"`
	// NativePayments allows paying with the native coin.
	NativePayments bool `mapstructure:"native_payments"`
}

// FeedConfig contains the event feed settings.
type FeedConfig struct {
	// Listen is the address of the websocket server, empty disables
	// the feed.
	Listen string `mapstructure:"listen"`
}

const maxProtocolFee = 5000

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain_id", 1)
	v.SetDefault("start_time", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("owner_key", "")
	v.SetDefault("wallets", []string{})
	v.SetDefault("market.protocol_fee", 0)
	v.SetDefault("market.fee_receiver", "")
	v.SetDefault("market.lock_period", 15552000)
	v.SetDefault("market.native_payments", false)
	v.SetDefault("feed.listen", ":8546")
	return v
}

// Load reads the config at path. An empty path uses the defaults and
// the environment only.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// lists are not split by AutomaticEnv
	if len(cfg.Wallets) == 1 && strings.Contains(cfg.Wallets[0], ",") {
		cfg.Wallets = strings.Split(cfg.Wallets[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return errors.New("chain_id must be positive")
	}

	if _, err := log.LvlFromString(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.OwnerKey == "" {
		return errors.New("owner_key is required")
	}

	if _, err := c.Key(); err != nil {
		return fmt.Errorf("owner_key: %w", err)
	}

	for _, w := range c.Wallets {
		if !common.IsHexAddress(strings.TrimSpace(w)) {
			return fmt.Errorf("wallets: invalid address %q", w)
		}
	}

	if c.Market.ProtocolFee > maxProtocolFee {
		return fmt.Errorf("market.protocol_fee %d exceeds %d", c.Market.ProtocolFee, maxProtocolFee)
	}

	if r := c.Market.FeeReceiver; r != "" && !common.IsHexAddress(r) {
		return fmt.Errorf("market.fee_receiver: invalid address %q", r)
	}
	return nil
}

// Key returns the owner private key.
func (c *Config) Key() (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(c.OwnerKey, "0x"))
}

// WalletAddresses returns the configured wallets.
func (c *Config) WalletAddresses() []common.Address {
	r := make([]common.Address, len(c.Wallets))
	for i, w := range c.Wallets {
		r[i] = common.HexToAddress(strings.TrimSpace(w))
	}
	return r
}

// FeeReceiverAddress returns the protocol fee receiver, owner when
// none is configured.
func (c *Config) FeeReceiverAddress(owner common.Address) common.Address {
	if c.Market.FeeReceiver == "" {
		return owner
	}
	return common.HexToAddress(c.Market.FeeReceiver)
}
