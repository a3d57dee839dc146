package access

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// Gate answers whether a principal may take part in a call. Contract
// addresses are looked up in the contracts registry, every other
// address in the wallet registry the contracts registry points to.
type Gate struct {
	Registry common.Address
}

// IsWhitelisted reports whether addr is on the allow-list.
func (g Gate) IsWhitelisted(t *ledger.Tx, addr common.Address) bool {
	if addr == (common.Address{}) {
		return false
	}

	reg, ok := t.Contract(g.Registry).(*ContractsRegistry)
	if !ok {
		return false
	}

	if t.IsContract(addr) {
		return reg.IsWhitelisted(t, addr)
	}
	return reg.IsWalletWhitelisted(t, addr)
}

// Require fails with a NotWhitelistedError naming the first principal
// that is not whitelisted.
func (g Gate) Require(t *ledger.Tx, addrs ...common.Address) error {
	for _, a := range addrs {
		if !g.IsWhitelisted(t, a) {
			return &NotWhitelistedError{Principal: a}
		}
	}
	return nil
}

// GatedOwnable is an Ownable whose owner operations additionally
// require a whitelisted sender.
type GatedOwnable struct {
	Ownable
	Gate Gate
}

// OnlyOwner fails unless the sender is whitelisted and the owner.
func (o GatedOwnable) OnlyOwner(t *ledger.Tx) error {
	err := o.Gate.Require(t, t.Sender())
	if err != nil {
		return err
	}
	return o.Ownable.OnlyOwner(t)
}

// TransferOwnership hands the contract to a whitelisted newOwner.
func (o GatedOwnable) TransferOwnership(t *ledger.Tx, newOwner common.Address) error {
	err := o.Gate.Require(t, t.Sender())
	if err != nil {
		return err
	}

	if newOwner != (common.Address{}) {
		err = o.Gate.Require(t, newOwner)
		if err != nil {
			return err
		}
	}

	return o.Ownable.TransferOwnership(t, newOwner)
}

// RenounceOwnership leaves the contract without owner.
func (o GatedOwnable) RenounceOwnership(t *ledger.Tx) error {
	err := o.Gate.Require(t, t.Sender())
	if err != nil {
		return err
	}
	return o.Ownable.RenounceOwnership(t)
}
