package proxy

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// LazyERC1155 is a multi token that mints on first transfer.
type LazyERC1155 interface {
	TransferFromOrMint(t *ledger.Tx, data asset.MintData, from, to common.Address, amount *big.Int) error
}

// LazyERC721 is a collection that mints on first transfer.
type LazyERC721 interface {
	TransferFromOrMint(t *ledger.Tx, data asset.MintData, from, to common.Address) error
}

// LazyMintTransferProxy moves lazily minted tokens, minting what the
// seller does not hold yet. Tokens trust it as a partner.
type LazyMintTransferProxy struct {
	OperatorRole
}

// NewLazyMintTransferProxy returns the builder of a lazy mint proxy.
func NewLazyMintTransferProxy(gate access.Gate) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		return &LazyMintTransferProxy{OperatorRole: newOperatorRole(t, gate, addr)}, nil
	}
}

// Transfer moves a, of class ERC1155_LAZY or ERC721_LAZY, from from to
// to.
func (p *LazyMintTransferProxy) Transfer(t *ledger.Tx, a asset.Asset, from, to common.Address) error {
	err := p.onlyOperator(t, from, to)
	if err != nil {
		return err
	}

	if a.Type.Class != asset.ERC1155Lazy && a.Type.Class != asset.ERC721Lazy {
		return fmt.Errorf("%w: %v", ErrUnsupportedClass, a.Type.Class)
	}

	d, err := asset.Decode(a.Type)
	if err != nil {
		return err
	}

	c := t.Contract(d.Token)
	if a.Type.Class == asset.ERC721Lazy {
		if a.Value.Cmp(big.NewInt(1)) != 0 {
			return ErrWrongValue
		}

		tk, ok := c.(LazyERC721)
		if !ok {
			return ErrUnsupportedToken
		}
		return tk.TransferFromOrMint(t.Call(p.Addr), *d.Mint, from, to)
	}

	tk, ok := c.(LazyERC1155)
	if !ok {
		return ErrUnsupportedToken
	}
	return tk.TransferFromOrMint(t.Call(p.Addr), *d.Mint, from, to, a.Value)
}
