// Package market deploys and wires the contracts of a marketplace on
// a ledger chain.
package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/exchange"
	"github.com/helinwang/bridgetower/pkg/ledger"
	"github.com/helinwang/bridgetower/pkg/proxy"
	"github.com/helinwang/bridgetower/pkg/royalty"
	"github.com/helinwang/bridgetower/pkg/token"
)

// Params configure a new marketplace.
type Params struct {
	// Owner deploys and owns every market contract.
	Owner   common.Address
	Wallets []common.Address
	// ProtocolFee in basis points, charged on both legs.
	ProtocolFee    uint64
	FeeReceiver    common.Address
	NativePayments bool
	// LockPeriod of the multi tokens deployed through the market, the
	// token default when 0.
	LockPeriod uint64
}

// Market is a deployed marketplace.
type Market struct {
	Chain      *ledger.Chain
	Owner      common.Address
	LockPeriod uint64

	Registries    access.Registries
	TransferProxy *proxy.TransferProxy
	ERC20Proxy    *proxy.ERC20TransferProxy
	LazyProxy     *proxy.LazyMintTransferProxy
	Royalties     *royalty.Registry
	Exchange      *exchange.Exchange
}

// Bootstrap deploys the registries, the proxies, the royalties
// registry and the exchange, whitelists them and makes the exchange
// the operator of every proxy.
func Bootstrap(c *ledger.Chain, p Params) (*Market, error) {
	regs, err := access.Deploy(c, p.Owner, p.Wallets...)
	if err != nil {
		return nil, fmt.Errorf("deploy registries: %w", err)
	}

	m := &Market{Chain: c, Owner: p.Owner, LockPeriod: p.LockPeriod, Registries: regs}
	gate := regs.Gate()

	m.TransferProxy, err = ledger.DeployContract[*proxy.TransferProxy](c, p.Owner, proxy.NewTransferProxy(gate))
	if err != nil {
		return nil, fmt.Errorf("deploy transfer proxy: %w", err)
	}

	m.ERC20Proxy, err = ledger.DeployContract[*proxy.ERC20TransferProxy](c, p.Owner, proxy.NewERC20TransferProxy(gate))
	if err != nil {
		return nil, fmt.Errorf("deploy erc20 proxy: %w", err)
	}

	m.LazyProxy, err = ledger.DeployContract[*proxy.LazyMintTransferProxy](c, p.Owner, proxy.NewLazyMintTransferProxy(gate))
	if err != nil {
		return nil, fmt.Errorf("deploy lazy mint proxy: %w", err)
	}

	m.Royalties, err = ledger.DeployContract[*royalty.Registry](c, p.Owner, royalty.NewRegistry(gate))
	if err != nil {
		return nil, fmt.Errorf("deploy royalties registry: %w", err)
	}

	m.Exchange, err = ledger.DeployContract[*exchange.Exchange](c, p.Owner, exchange.New(gate, exchange.Params{
		TransferProxy:      m.TransferProxy.Address(),
		ERC20TransferProxy: m.ERC20Proxy.Address(),
		LazyTransferProxy:  m.LazyProxy.Address(),
		ProtocolFee:        p.ProtocolFee,
		DefaultFeeReceiver: p.FeeReceiver,
		RoyaltiesRegistry:  m.Royalties.Address(),
	}))
	if err != nil {
		return nil, fmt.Errorf("deploy exchange: %w", err)
	}

	err = regs.AddContracts(c, p.Owner,
		m.TransferProxy.Address(),
		m.ERC20Proxy.Address(),
		m.LazyProxy.Address(),
		m.Royalties.Address(),
		m.Exchange.Address())
	if err != nil {
		return nil, fmt.Errorf("whitelist contracts: %w", err)
	}

	_, err = c.Exec(ledger.Msg{From: p.Owner}, func(t *ledger.Tx) error {
		for _, r := range []proxy.OperatorRole{m.TransferProxy.OperatorRole, m.ERC20Proxy.OperatorRole, m.LazyProxy.OperatorRole} {
			err := r.AddOperator(t, m.Exchange.Address())
			if err != nil {
				return err
			}
		}

		if p.NativePayments {
			return m.Exchange.WhitelistNativePaymentToken(t, true)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("configure exchange: %w", err)
	}

	log.Info("market deployed",
		"owner", p.Owner,
		"exchange", m.Exchange.Address(),
		"wallets", regs.Wallets.Address(),
		"contracts", regs.Contracts.Address(),
		"royalties", m.Royalties.Address(),
		"fee", p.ProtocolFee)
	return m, nil
}

// AddWallets whitelists wallets.
func (m *Market) AddWallets(wallets ...common.Address) error {
	_, err := m.Chain.Exec(ledger.Msg{From: m.Owner}, func(t *ledger.Tx) error {
		for _, w := range wallets {
			err := m.Registries.Wallets.AddWallet(t, w)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// DeployERC1155 deploys a multi token owned by creator, whitelists it
// and lets the lazy mint proxy mint it.
func (m *Market) DeployERC1155(creator common.Address, name, symbol, baseURI string) (*token.ERC1155, error) {
	tk, err := ledger.DeployContract[*token.ERC1155](m.Chain, creator, token.NewERC1155(m.Registries.Gate(), token.ERC1155Config{
		Name:              name,
		Symbol:            symbol,
		BaseURI:           baseURI,
		TransferProxy:     m.TransferProxy.Address(),
		LazyTransferProxy: m.LazyProxy.Address(),
		LockPeriod:        m.LockPeriod,
	}))
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", symbol, err)
	}

	err = m.Registries.AddContracts(m.Chain, m.Owner, tk.Address())
	if err != nil {
		return nil, err
	}

	_, err = m.Chain.Exec(ledger.Msg{From: creator}, func(t *ledger.Tx) error {
		return tk.AddPartner(t, m.LazyProxy.Address())
	})
	if err != nil {
		return nil, err
	}
	return tk, nil
}

// DeployERC721 deploys a collection owned by creator and whitelists
// it.
func (m *Market) DeployERC721(creator common.Address, name, symbol, baseURI string) (*token.ERC721, error) {
	tk, err := ledger.DeployContract[*token.ERC721](m.Chain, creator, token.NewERC721(m.Registries.Gate(), token.ERC721Config{
		Name:              name,
		Symbol:            symbol,
		BaseURI:           baseURI,
		LazyTransferProxy: m.LazyProxy.Address(),
	}))
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", symbol, err)
	}

	err = m.Registries.AddContracts(m.Chain, m.Owner, tk.Address())
	if err != nil {
		return nil, err
	}
	return tk, nil
}

// DeployERC20 deploys a payment token whose supply goes to the owner
// and lists it on the exchange.
func (m *Market) DeployERC20(name, symbol string, decimals uint8, supply *big.Int) (*token.ERC20, error) {
	tk, err := ledger.DeployContract[*token.ERC20](m.Chain, m.Owner, token.NewERC20(name, symbol, decimals, supply))
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", symbol, err)
	}

	err = m.Registries.AddContracts(m.Chain, m.Owner, tk.Address())
	if err != nil {
		return nil, err
	}

	_, err = m.Chain.Exec(ledger.Msg{From: m.Owner}, func(t *ledger.Tx) error {
		return m.Exchange.WhitelistPaymentToken(t, tk.Address(), true)
	})
	if err != nil {
		return nil, err
	}
	return tk, nil
}
