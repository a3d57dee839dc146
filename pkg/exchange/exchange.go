package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// Config is the contract wide settlement configuration. It is loaded
// once per call and handed to the settlement by reference.
type Config struct {
	// ProtocolFee is charged in basis points on both legs.
	ProtocolFee        uint64
	DefaultFeeReceiver common.Address
	RoyaltiesRegistry  common.Address
	NativePayments     bool
}

// Params are the deployment parameters of an exchange.
type Params struct {
	TransferProxy      common.Address
	ERC20TransferProxy common.Address
	LazyTransferProxy  common.Address
	ProtocolFee        uint64
	DefaultFeeReceiver common.Address
	RoyaltiesRegistry  common.Address
}

var (
	configKey         = []byte("config")
	fillPrefix        = []byte("fill")
	matcherPrefix     = []byte("matcher")
	proxyPrefix       = []byte("proxy")
	feeReceiverPrefix = []byte("feeReceiver")
	paymentPrefix     = []byte("payment")
)

// Exchange settles pairs of matching orders between whitelisted
// principals.
type Exchange struct {
	access.GatedOwnable
}

// New returns the builder of an exchange owned by the deployer.
func New(gate access.Gate, p Params) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		e := &Exchange{GatedOwnable: access.GatedOwnable{
			Ownable: access.Ownable{Addr: addr},
			Gate:    gate,
		}}

		e.InitOwner(t, t.Sender())
		e.putConfig(t, Config{
			ProtocolFee:        p.ProtocolFee,
			DefaultFeeReceiver: p.DefaultFeeReceiver,
			RoyaltiesRegistry:  p.RoyaltiesRegistry,
		})

		st := t.Storage(addr)
		for c, proxy := range map[asset.Class]common.Address{
			asset.ERC721:      p.TransferProxy,
			asset.ERC1155:     p.TransferProxy,
			asset.ERC20:       p.ERC20TransferProxy,
			asset.ERC721Lazy:  p.LazyTransferProxy,
			asset.ERC1155Lazy: p.LazyTransferProxy,
		} {
			if proxy != (common.Address{}) {
				st.Put(ledger.Key(proxyPrefix, c[:]), proxy)
			}
		}
		return e, nil
	}
}

// Payable marks the exchange as accepting native value, which only
// MatchOrders spends.
func (e *Exchange) Payable() {}

// onlyOwner guards the admin operations, none of which takes value.
func (e *Exchange) onlyOwner(t *ledger.Tx) error {
	err := t.NonPayable()
	if err != nil {
		return err
	}
	return e.OnlyOwner(t)
}

// TransferOwnership hands the exchange to a whitelisted newOwner.
func (e *Exchange) TransferOwnership(t *ledger.Tx, newOwner common.Address) error {
	err := t.NonPayable()
	if err != nil {
		return err
	}
	return e.GatedOwnable.TransferOwnership(t, newOwner)
}

// RenounceOwnership leaves the exchange without owner.
func (e *Exchange) RenounceOwnership(t *ledger.Tx) error {
	err := t.NonPayable()
	if err != nil {
		return err
	}
	return e.GatedOwnable.RenounceOwnership(t)
}

// Address returns the address of the exchange.
func (e *Exchange) Address() common.Address {
	return e.Addr
}

// Config returns the current settlement configuration.
func (e *Exchange) Config(t *ledger.Tx) Config {
	var c Config
	t.Storage(e.Addr).Get(configKey, &c)
	return c
}

func (e *Exchange) putConfig(t *ledger.Tx, c Config) {
	t.Storage(e.Addr).Put(configKey, c)
}

// Domain returns the signature domain of the exchange.
func (e *Exchange) Domain(t *ledger.Tx) Domain {
	return NewDomain(t.ChainID(), e.Addr)
}

// ProtocolFee returns the protocol fee in basis points.
func (e *Exchange) ProtocolFee(t *ledger.Tx) uint64 {
	return e.Config(t).ProtocolFee
}

// DefaultFeeReceiver returns the receiver of protocol fees for tokens
// without a dedicated receiver.
func (e *Exchange) DefaultFeeReceiver(t *ledger.Tx) common.Address {
	return e.Config(t).DefaultFeeReceiver
}

// RoyaltiesRegistry returns the registry royalties are resolved with.
func (e *Exchange) RoyaltiesRegistry(t *ledger.Tx) common.Address {
	return e.Config(t).RoyaltiesRegistry
}

// FeeReceiver returns the receiver set for token, the zero address if
// none.
func (e *Exchange) FeeReceiver(t *ledger.Tx, token common.Address) common.Address {
	return t.Storage(e.Addr).Address(ledger.Key(feeReceiverPrefix, token[:]))
}

func feeReceiver(t *ledger.Tx, e *Exchange, cfg *Config, token common.Address) common.Address {
	if r := e.FeeReceiver(t, token); r != (common.Address{}) {
		return r
	}
	return cfg.DefaultFeeReceiver
}

// AssetMatcher returns the custom matcher of class, the zero address
// if none.
func (e *Exchange) AssetMatcher(t *ledger.Tx, class asset.Class) common.Address {
	return t.Storage(e.Addr).Address(ledger.Key(matcherPrefix, class[:]))
}

// TransferProxy returns the proxy moving assets of class.
func (e *Exchange) TransferProxy(t *ledger.Tx, class asset.Class) common.Address {
	return t.Storage(e.Addr).Address(ledger.Key(proxyPrefix, class[:]))
}

// IsWhitelistedPaymentToken reports whether token may be used to pay.
func (e *Exchange) IsWhitelistedPaymentToken(t *ledger.Tx, token common.Address) bool {
	return t.Storage(e.Addr).Bool(ledger.Key(paymentPrefix, token[:]))
}

// IsWhitelistedNativePaymentToken reports whether the native coin may
// be used to pay.
func (e *Exchange) IsWhitelistedNativePaymentToken(t *ledger.Tx) bool {
	return e.Config(t).NativePayments
}

// SetProtocolFee changes the protocol fee.
func (e *Exchange) SetProtocolFee(t *ledger.Tx, fee uint64) error {
	err := e.onlyOwner(t)
	if err != nil {
		return err
	}

	c := e.Config(t)
	old := c.ProtocolFee
	c.ProtocolFee = fee
	e.putConfig(t, c)
	t.Emit(e.Addr, "ProtocolFeeChanged", ProtocolFeeChanged{OldValue: old, NewValue: fee})
	return nil
}

// SetDefaultFeeReceiver changes the default receiver of protocol fees.
func (e *Exchange) SetDefaultFeeReceiver(t *ledger.Tx, receiver common.Address) error {
	err := e.onlyOwner(t)
	if err != nil {
		return err
	}

	c := e.Config(t)
	c.DefaultFeeReceiver = receiver
	e.putConfig(t, c)
	t.Emit(e.Addr, "FeeReceiverChanged", FeeReceiverChanged{Receiver: receiver})
	return nil
}

// SetFeeReceiver sets the receiver of protocol fees paid in token.
func (e *Exchange) SetFeeReceiver(t *ledger.Tx, token, receiver common.Address) error {
	err := e.onlyOwner(t)
	if err != nil {
		return err
	}

	t.Storage(e.Addr).Put(ledger.Key(feeReceiverPrefix, token[:]), receiver)
	t.Emit(e.Addr, "FeeReceiverChanged", FeeReceiverChanged{Token: token, Receiver: receiver})
	return nil
}

// SetRoyaltiesRegistry changes the royalties registry.
func (e *Exchange) SetRoyaltiesRegistry(t *ledger.Tx, registry common.Address) error {
	err := e.onlyOwner(t)
	if err != nil {
		return err
	}

	c := e.Config(t)
	c.RoyaltiesRegistry = registry
	e.putConfig(t, c)
	t.Emit(e.Addr, "RoyaltiesRegistryChanged", RoyaltiesRegistryChanged{Registry: registry})
	return nil
}

// SetAssetMatcher sets the matcher contract of a custom class.
func (e *Exchange) SetAssetMatcher(t *ledger.Tx, class asset.Class, matcher common.Address) error {
	err := e.onlyOwner(t)
	if err != nil {
		return err
	}

	t.Storage(e.Addr).Put(ledger.Key(matcherPrefix, class[:]), matcher)
	t.Emit(e.Addr, "MatcherChange", MatcherChange{AssetType: class, Matcher: matcher})
	return nil
}

// SetTransferProxy sets the proxy moving assets of class.
func (e *Exchange) SetTransferProxy(t *ledger.Tx, class asset.Class, proxy common.Address) error {
	err := e.onlyOwner(t)
	if err != nil {
		return err
	}

	t.Storage(e.Addr).Put(ledger.Key(proxyPrefix, class[:]), proxy)
	t.Emit(e.Addr, "ProxyChange", ProxyChange{AssetType: class, Proxy: proxy})
	return nil
}

// WhitelistPaymentToken allows or forbids paying with token, which
// must be a deployed contract.
func (e *Exchange) WhitelistPaymentToken(t *ledger.Tx, token common.Address, ok bool) error {
	err := e.onlyOwner(t)
	if err != nil {
		return err
	}

	if !t.IsContract(token) {
		return access.ErrNotContract
	}

	t.Storage(e.Addr).PutBool(ledger.Key(paymentPrefix, token[:]), ok)
	t.Emit(e.Addr, "WhitelistedPaymentToken", WhitelistedPaymentToken{Token: token, Whitelisted: ok})
	return nil
}

// WhitelistNativePaymentToken allows or forbids paying with the native
// coin.
func (e *Exchange) WhitelistNativePaymentToken(t *ledger.Tx, ok bool) error {
	err := e.onlyOwner(t)
	if err != nil {
		return err
	}

	c := e.Config(t)
	c.NativePayments = ok
	e.putConfig(t, c)
	t.Emit(e.Addr, "WhitelistedNativePaymentToken", WhitelistedNativePaymentToken{Whitelisted: ok})
	return nil
}

// Fill returns the recorded fill of the order with the given
// fingerprint.
func (e *Exchange) Fill(t *ledger.Tx, hash common.Hash) *big.Int {
	return t.Storage(e.Addr).BigInt(ledger.Key(fillPrefix, hash[:]))
}

func (e *Exchange) setFill(t *ledger.Tx, hash common.Hash, v *big.Int) {
	t.Storage(e.Addr).PutBigInt(ledger.Key(fillPrefix, hash[:]), v)
}

// Cancel terminally cancels o. Only its whitelisted maker may cancel
// it, cancelling twice is a no-op that emits again.
func (e *Exchange) Cancel(t *ledger.Tx, o Order) error {
	err := t.NonPayable()
	if err != nil {
		return err
	}

	err = e.Gate.Require(t, t.Sender())
	if err != nil {
		return err
	}

	if t.Sender() != o.Maker {
		return ErrNotMaker
	}

	if salt(o).Sign() == 0 {
		return ErrZeroSalt
	}

	h := o.Fingerprint()
	e.setFill(t, h, Cancelled())
	t.Emit(e.Addr, "Cancel", Cancel{
		Hash:          h,
		Maker:         o.Maker,
		MakeAssetType: o.MakeAsset.Type,
		TakeAssetType: o.TakeAsset.Type,
	})
	log.Debug("order cancelled", "hash", h, "maker", o.Maker)
	return nil
}

// Cancelled returns the fill value of cancelled orders, 2^256-1.
func Cancelled() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}
