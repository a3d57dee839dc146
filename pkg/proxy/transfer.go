package proxy

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// Transferrer is a proxy moving assets of the classes it is
// registered for.
type Transferrer interface {
	ledger.Contract
	Transfer(t *ledger.Tx, a asset.Asset, from, to common.Address) error
}

// ERC721 is the collection interface used by the proxies.
type ERC721 interface {
	SafeTransferFrom(t *ledger.Tx, from, to common.Address, id *big.Int) error
}

// ERC1155 is the multi token interface used by the proxies.
type ERC1155 interface {
	SafeTransferFrom(t *ledger.Tx, from, to common.Address, id, amount *big.Int, data []byte) error
}

// ERC20 is the fungible token interface used by the proxies.
type ERC20 interface {
	TransferFrom(t *ledger.Tx, from, to common.Address, amount *big.Int) error
}

// TransferProxy moves ERC721 and ERC1155 tokens on behalf of its
// operators. Holders approve it once per token contract.
type TransferProxy struct {
	OperatorRole
}

// NewTransferProxy returns the builder of an NFT transfer proxy.
func NewTransferProxy(gate access.Gate) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		return &TransferProxy{OperatorRole: newOperatorRole(t, gate, addr)}, nil
	}
}

// ERC721SafeTransferFrom moves id of token from from to to.
func (p *TransferProxy) ERC721SafeTransferFrom(t *ledger.Tx, token, from, to common.Address, id *big.Int) error {
	err := p.onlyOperator(t, from, to)
	if err != nil {
		return err
	}

	tk, ok := t.Contract(token).(ERC721)
	if !ok {
		return ErrUnsupportedToken
	}
	return tk.SafeTransferFrom(t.Call(p.Addr), from, to, id)
}

// ERC1155SafeTransferFrom moves amount of id of token from from to to.
func (p *TransferProxy) ERC1155SafeTransferFrom(t *ledger.Tx, token, from, to common.Address, id, amount *big.Int, data []byte) error {
	err := p.onlyOperator(t, from, to)
	if err != nil {
		return err
	}

	tk, ok := t.Contract(token).(ERC1155)
	if !ok {
		return ErrUnsupportedToken
	}
	return tk.SafeTransferFrom(t.Call(p.Addr), from, to, id, amount, data)
}

// Transfer dispatches a of class ERC721 or ERC1155.
func (p *TransferProxy) Transfer(t *ledger.Tx, a asset.Asset, from, to common.Address) error {
	d, err := asset.Decode(a.Type)
	if err != nil {
		return err
	}

	switch a.Type.Class {
	case asset.ERC721:
		if a.Value.Cmp(big.NewInt(1)) != 0 {
			return ErrWrongValue
		}
		return p.ERC721SafeTransferFrom(t, d.Token, from, to, d.TokenID)
	case asset.ERC1155:
		return p.ERC1155SafeTransferFrom(t, d.Token, from, to, d.TokenID, a.Value, nil)
	}

	log.Warn("transfer proxy asked for unsupported class", "proxy", p.Addr, "class", a.Type.Class)
	return fmt.Errorf("%w: %v", ErrUnsupportedClass, a.Type.Class)
}

// ERC20TransferProxy moves fungible tokens on behalf of its operators.
// Holders approve it an allowance.
type ERC20TransferProxy struct {
	OperatorRole
}

// NewERC20TransferProxy returns the builder of a fungible token proxy.
func NewERC20TransferProxy(gate access.Gate) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		return &ERC20TransferProxy{OperatorRole: newOperatorRole(t, gate, addr)}, nil
	}
}

// ERC20SafeTransferFrom moves amount of token from from to to.
func (p *ERC20TransferProxy) ERC20SafeTransferFrom(t *ledger.Tx, token, from, to common.Address, amount *big.Int) error {
	err := p.onlyOperator(t, from, to)
	if err != nil {
		return err
	}

	tk, ok := t.Contract(token).(ERC20)
	if !ok {
		return ErrUnsupportedToken
	}
	return tk.TransferFrom(t.Call(p.Addr), from, to, amount)
}

// Transfer dispatches a of class ERC20.
func (p *ERC20TransferProxy) Transfer(t *ledger.Tx, a asset.Asset, from, to common.Address) error {
	if a.Type.Class != asset.ERC20 {
		return fmt.Errorf("%w: %v", ErrUnsupportedClass, a.Type.Class)
	}

	d, err := asset.Decode(a.Type)
	if err != nil {
		return err
	}
	return p.ERC20SafeTransferFrom(t, d.Token, from, to, a.Value)
}
