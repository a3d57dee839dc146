package proxy

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
	"github.com/helinwang/bridgetower/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	carol = common.HexToAddress("0xca201")
)

type fixture struct {
	c     *ledger.Chain
	regs  access.Registries
	nft   *TransferProxy
	erc20 *ERC20TransferProxy
	lazy  *LazyMintTransferProxy
	multi *token.ERC1155
	coin  *token.ERC20
}

func setup(t *testing.T) *fixture {
	c := ledger.NewChain(big.NewInt(1))
	c.SetTime(1600000000)
	regs, err := access.Deploy(c, alice, bob)
	require.NoError(t, err)

	f := &fixture{c: c, regs: regs}
	f.nft, err = ledger.DeployContract[*TransferProxy](c, alice, NewTransferProxy(regs.Gate()))
	require.NoError(t, err)
	f.erc20, err = ledger.DeployContract[*ERC20TransferProxy](c, alice, NewERC20TransferProxy(regs.Gate()))
	require.NoError(t, err)
	f.lazy, err = ledger.DeployContract[*LazyMintTransferProxy](c, alice, NewLazyMintTransferProxy(regs.Gate()))
	require.NoError(t, err)
	f.multi, err = ledger.DeployContract[*token.ERC1155](c, alice, token.NewERC1155(regs.Gate(), token.ERC1155Config{
		Name:              "Multi",
		Symbol:            "MLT",
		TransferProxy:     f.nft.Address(),
		LazyTransferProxy: f.lazy.Address(),
	}))
	require.NoError(t, err)
	f.coin, err = ledger.DeployContract[*token.ERC20](c, alice, token.NewERC20("Coin", "CN", 18, big.NewInt(1000)))
	require.NoError(t, err)

	require.NoError(t, regs.AddContracts(c, alice, f.nft.Address(), f.erc20.Address(), f.lazy.Address(), f.multi.Address()))
	return f
}

func (f *fixture) exec(from common.Address, fn func(tx *ledger.Tx) error) error {
	_, err := f.c.Exec(ledger.Msg{From: from}, fn)
	return err
}

func mintData(creator common.Address, id, supply int64) asset.MintData {
	return asset.MintData{
		TokenID:    big.NewInt(id),
		Supply:     big.NewInt(supply),
		Creators:   []asset.Part{{Account: creator, Value: 10000}},
		Royalties:  []asset.Part{{Account: creator, Value: 1000}},
		Signatures: [][]byte{{}},
	}
}

func TestOperators(t *testing.T) {
	f := setup(t)

	var nw *access.NotWhitelistedError
	err := f.exec(carol, func(tx *ledger.Tx) error { return f.nft.AddOperator(tx, bob) })
	require.True(t, errors.As(err, &nw))
	assert.Equal(t, carol, nw.Principal)

	err = f.exec(bob, func(tx *ledger.Tx) error { return f.nft.AddOperator(tx, bob) })
	assert.Equal(t, access.ErrNotOwner, err)

	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error { return f.nft.AddOperator(tx, bob) }))
	f.c.View(alice, func(tx *ledger.Tx) error {
		assert.True(t, f.nft.IsOperator(tx, bob))
		return nil
	})

	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error { return f.nft.RemoveOperator(tx, bob) }))
	f.c.View(alice, func(tx *ledger.Tx) error {
		assert.False(t, f.nft.IsOperator(tx, bob))
		return nil
	})
}

func TestERC1155Transfer(t *testing.T) {
	f := setup(t)
	id := big.NewInt(1)
	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error {
		err := f.multi.MintAndTransfer(tx, mintData(alice, 1, 100), alice, big.NewInt(100))
		if err != nil {
			return err
		}
		return f.multi.SetApprovalForAll(tx, f.nft.Address(), true)
	}))

	a := asset.NewERC1155(f.multi.Address(), id, big.NewInt(10))
	err := f.exec(bob, func(tx *ledger.Tx) error { return f.nft.Transfer(tx, a, alice, bob) })
	assert.Equal(t, ErrNotOperator, err)

	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error { return f.nft.AddOperator(tx, bob) }))

	var nw *access.NotWhitelistedError
	err = f.exec(bob, func(tx *ledger.Tx) error { return f.nft.Transfer(tx, a, alice, carol) })
	require.True(t, errors.As(err, &nw))
	assert.Equal(t, carol, nw.Principal)

	r, err := f.c.Exec(ledger.Msg{From: bob}, func(tx *ledger.Tx) error { return f.nft.Transfer(tx, a, alice, bob) })
	require.NoError(t, err)
	require.Len(t, r.Find("Locked"), 1)

	f.c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, big.NewInt(90), f.multi.BalanceOf(tx, alice, id))
		assert.Equal(t, big.NewInt(10), f.multi.BalanceOf(tx, bob, id))
		assert.Equal(t, big.NewInt(10), f.multi.LockedAmount(tx, bob, id))
		return nil
	})

	err = f.exec(bob, func(tx *ledger.Tx) error {
		return f.nft.Transfer(tx, asset.NewERC20(f.coin.Address(), big.NewInt(1)), alice, bob)
	})
	assert.True(t, errors.Is(err, ErrUnsupportedClass))
}

func TestERC20Transfer(t *testing.T) {
	f := setup(t)
	a := asset.NewERC20(f.coin.Address(), big.NewInt(100))
	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error { return f.erc20.AddOperator(tx, bob) }))

	err := f.exec(bob, func(tx *ledger.Tx) error { return f.erc20.Transfer(tx, a, alice, bob) })
	assert.Equal(t, token.ErrInsufficientAllowance, err)

	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error {
		return f.coin.Approve(tx, f.erc20.Address(), big.NewInt(100))
	}))
	require.NoError(t, f.exec(bob, func(tx *ledger.Tx) error { return f.erc20.Transfer(tx, a, alice, bob) }))

	f.c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, big.NewInt(900), f.coin.BalanceOf(tx, alice))
		assert.Equal(t, big.NewInt(100), f.coin.BalanceOf(tx, bob))
		return nil
	})
}

func TestLazyMintTransfer(t *testing.T) {
	f := setup(t)
	data := mintData(alice, 5, 1000)
	id := data.TokenID

	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error {
		return f.multi.MintAndTransfer(tx, data, alice, big.NewInt(500))
	}))

	// whitelisting is checked before the operator role
	var nw *access.NotWhitelistedError
	a := asset.NewERC1155Lazy(f.multi.Address(), data, big.NewInt(100))
	err := f.exec(alice, func(tx *ledger.Tx) error { return f.lazy.Transfer(tx, a, alice, carol) })
	require.True(t, errors.As(err, &nw))

	err = f.exec(alice, func(tx *ledger.Tx) error { return f.lazy.Transfer(tx, a, alice, bob) })
	assert.Equal(t, ErrNotOperator, err)

	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error { return f.lazy.AddOperator(tx, alice) }))
	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error { return f.lazy.Transfer(tx, a, alice, bob) }))

	// more than alice holds mints the difference
	a = asset.NewERC1155Lazy(f.multi.Address(), data, big.NewInt(450))
	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error { return f.lazy.Transfer(tx, a, alice, bob) }))

	f.c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, big.NewInt(0), f.multi.BalanceOf(tx, alice, id))
		assert.Equal(t, big.NewInt(550), f.multi.BalanceOf(tx, bob, id))
		assert.Equal(t, big.NewInt(550), f.multi.LockedAmount(tx, bob, id))
		assert.Equal(t, big.NewInt(550), f.multi.Minted(tx, id))
		return nil
	})
}

func TestOwnership(t *testing.T) {
	f := setup(t)

	var nw *access.NotWhitelistedError
	err := f.exec(alice, func(tx *ledger.Tx) error { return f.lazy.TransferOwnership(tx, carol) })
	require.True(t, errors.As(err, &nw))

	require.NoError(t, f.exec(alice, func(tx *ledger.Tx) error { return f.lazy.TransferOwnership(tx, bob) }))
	require.NoError(t, f.exec(bob, func(tx *ledger.Tx) error { return f.lazy.RenounceOwnership(tx) }))
	f.c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, common.Address{}, f.lazy.Owner(tx))
		return nil
	})
}
