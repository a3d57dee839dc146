package access

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

var ownerKey = []byte("owner")

// OwnershipTransferred is emitted whenever the owner of a contract
// changes.
type OwnershipTransferred struct {
	PreviousOwner common.Address `json:"previousOwner"`
	NewOwner      common.Address `json:"newOwner"`
}

// Ownable keeps the owner of the contract at Addr in its storage.
type Ownable struct {
	Addr common.Address
}

// Owner returns the current owner, the zero address once renounced.
func (o Ownable) Owner(t *ledger.Tx) common.Address {
	return t.Storage(o.Addr).Address(ownerKey)
}

// InitOwner sets the first owner, it is called by contract builders.
func (o Ownable) InitOwner(t *ledger.Tx, owner common.Address) {
	o.setOwner(t, owner)
}

func (o Ownable) setOwner(t *ledger.Tx, owner common.Address) {
	prev := o.Owner(t)
	st := t.Storage(o.Addr)
	if owner == (common.Address{}) {
		st.Delete(ownerKey)
	} else {
		st.Put(ownerKey, owner)
	}
	t.Emit(o.Addr, "OwnershipTransferred", OwnershipTransferred{PreviousOwner: prev, NewOwner: owner})
}

// OnlyOwner fails unless the sender is the owner.
func (o Ownable) OnlyOwner(t *ledger.Tx) error {
	if t.Sender() != o.Owner(t) {
		return ErrNotOwner
	}
	return nil
}

// TransferOwnership hands the contract to newOwner, sender must be
// the owner.
func (o Ownable) TransferOwnership(t *ledger.Tx, newOwner common.Address) error {
	err := o.OnlyOwner(t)
	if err != nil {
		return err
	}

	if newOwner == (common.Address{}) {
		return ErrZeroAddress
	}

	o.setOwner(t, newOwner)
	return nil
}

// RenounceOwnership leaves the contract without owner.
func (o Ownable) RenounceOwnership(t *ledger.Tx) error {
	err := o.OnlyOwner(t)
	if err != nil {
		return err
	}

	o.setOwner(t, common.Address{})
	return nil
}
