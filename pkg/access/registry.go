package access

import (
	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

var (
	walletPrefix      = []byte("wallet")
	contractPrefix    = []byte("contract")
	walletRegistryKey = []byte("walletRegistry")
)

// WalletStatusChanged is emitted when a wallet joins or leaves the
// allow-list.
type WalletStatusChanged struct {
	Wallet      common.Address `json:"wallet"`
	Whitelisted bool           `json:"whitelisted"`
}

// ContractStatusChanged is emitted when a contract joins or leaves
// the allow-list.
type ContractStatusChanged struct {
	Contract    common.Address `json:"contract"`
	Whitelisted bool           `json:"whitelisted"`
}

// WalletRegistry is the allow-list of wallets, maintained by its
// owner.
type WalletRegistry struct {
	Ownable
}

// NewWalletRegistry returns the builder of a wallet registry owned by
// the deployer.
func NewWalletRegistry() ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		r := &WalletRegistry{Ownable: Ownable{Addr: addr}}
		r.InitOwner(t, t.Sender())
		return r, nil
	}
}

// Address returns the address of the registry.
func (r *WalletRegistry) Address() common.Address {
	return r.Addr
}

// AddWallet whitelists w.
func (r *WalletRegistry) AddWallet(t *ledger.Tx, w common.Address) error {
	return r.setWallet(t, w, true)
}

// RemoveWallet removes w from the allow-list.
func (r *WalletRegistry) RemoveWallet(t *ledger.Tx, w common.Address) error {
	return r.setWallet(t, w, false)
}

func (r *WalletRegistry) setWallet(t *ledger.Tx, w common.Address, ok bool) error {
	err := r.OnlyOwner(t)
	if err != nil {
		log.Warn("wallet registry update rejected", "sender", t.Sender(), "wallet", w, "err", err)
		return err
	}

	t.Storage(r.Addr).PutBool(ledger.Key(walletPrefix, w[:]), ok)
	t.Emit(r.Addr, "WalletStatusChanged", WalletStatusChanged{Wallet: w, Whitelisted: ok})
	return nil
}

// IsWhitelisted reports whether w is on the allow-list.
func (r *WalletRegistry) IsWhitelisted(t *ledger.Tx, w common.Address) bool {
	return t.Storage(r.Addr).Bool(ledger.Key(walletPrefix, w[:]))
}

// ContractsRegistry is the allow-list of contracts. It also points to
// the wallet registry used for non-contract principals.
type ContractsRegistry struct {
	GatedOwnable
}

// NewContractsRegistry returns the builder of a contracts registry
// backed by the wallet registry at wallets.
func NewContractsRegistry(wallets common.Address) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		if !t.IsContract(wallets) {
			return nil, ErrNotContract
		}

		r := &ContractsRegistry{GatedOwnable: GatedOwnable{
			Ownable: Ownable{Addr: addr},
			Gate:    Gate{Registry: addr},
		}}
		t.Storage(addr).Put(walletRegistryKey, wallets)
		r.InitOwner(t, t.Sender())
		return r, nil
	}
}

// Address returns the address of the registry.
func (r *ContractsRegistry) Address() common.Address {
	return r.Addr
}

// WalletRegistry returns the address of the wallet registry.
func (r *ContractsRegistry) WalletRegistry(t *ledger.Tx) common.Address {
	return t.Storage(r.Addr).Address(walletRegistryKey)
}

// SetWalletRegistry points the registry to another wallet registry.
func (r *ContractsRegistry) SetWalletRegistry(t *ledger.Tx, wallets common.Address) error {
	err := r.OnlyOwner(t)
	if err != nil {
		return err
	}

	if !t.IsContract(wallets) {
		return ErrNotContract
	}

	t.Storage(r.Addr).Put(walletRegistryKey, wallets)
	return nil
}

// IsWalletWhitelisted asks the wallet registry about w.
func (r *ContractsRegistry) IsWalletWhitelisted(t *ledger.Tx, w common.Address) bool {
	wr, ok := t.Contract(r.WalletRegistry(t)).(*WalletRegistry)
	if !ok {
		return false
	}
	return wr.IsWhitelisted(t, w)
}

// AddContract whitelists the contract at c.
func (r *ContractsRegistry) AddContract(t *ledger.Tx, c common.Address) error {
	err := r.OnlyOwner(t)
	if err != nil {
		return err
	}

	if !t.IsContract(c) {
		return ErrNotContract
	}

	t.Storage(r.Addr).PutBool(ledger.Key(contractPrefix, c[:]), true)
	t.Emit(r.Addr, "ContractStatusChanged", ContractStatusChanged{Contract: c, Whitelisted: true})
	return nil
}

// RemoveContract removes c from the allow-list.
func (r *ContractsRegistry) RemoveContract(t *ledger.Tx, c common.Address) error {
	err := r.OnlyOwner(t)
	if err != nil {
		return err
	}

	t.Storage(r.Addr).PutBool(ledger.Key(contractPrefix, c[:]), false)
	t.Emit(r.Addr, "ContractStatusChanged", ContractStatusChanged{Contract: c, Whitelisted: false})
	return nil
}

// IsWhitelisted reports whether the contract at c is on the
// allow-list.
func (r *ContractsRegistry) IsWhitelisted(t *ledger.Tx, c common.Address) bool {
	return t.Storage(r.Addr).Bool(ledger.Key(contractPrefix, c[:]))
}
