package access

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// Registries is a deployed pair of wallet and contracts registries.
type Registries struct {
	Wallets   *WalletRegistry
	Contracts *ContractsRegistry
}

// Gate returns the gate backed by the registries.
func (r Registries) Gate() Gate {
	return Gate{Registry: r.Contracts.Address()}
}

// Deploy deploys both registries owned by owner and whitelists owner
// together with wallets.
func Deploy(c *ledger.Chain, owner common.Address, wallets ...common.Address) (Registries, error) {
	wr, err := ledger.DeployContract[*WalletRegistry](c, owner, NewWalletRegistry())
	if err != nil {
		return Registries{}, err
	}

	cr, err := ledger.DeployContract[*ContractsRegistry](c, owner, NewContractsRegistry(wr.Address()))
	if err != nil {
		return Registries{}, err
	}

	_, err = c.Exec(ledger.Msg{From: owner}, func(t *ledger.Tx) error {
		for _, w := range append([]common.Address{owner}, wallets...) {
			err := wr.AddWallet(t, w)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Registries{}, err
	}

	return Registries{Wallets: wr, Contracts: cr}, nil
}

// AddContracts whitelists the given contracts, sender must be the
// owner of the contracts registry.
func (r Registries) AddContracts(c *ledger.Chain, owner common.Address, contracts ...common.Address) error {
	_, err := c.Exec(ledger.Msg{From: owner}, func(t *ledger.Tx) error {
		for _, a := range contracts {
			err := r.Contracts.AddContract(t, a)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return err
}
