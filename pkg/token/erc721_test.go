package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestERC721(t *testing.T) {
	c := ledger.NewChain(big.NewInt(1))
	regs, err := access.Deploy(c, alice, bob)
	require.NoError(t, err)
	lazy := deployStub(t, c)
	tk, err := ledger.DeployContract[*ERC721](c, alice, NewERC721(regs.Gate(), ERC721Config{
		Name:              "Collection",
		Symbol:            "COL",
		BaseURI:           "ipfs://",
		LazyTransferProxy: lazy,
	}))
	require.NoError(t, err)
	require.NoError(t, regs.AddContracts(c, alice, lazy, tk.Address()))

	royalties := []asset.Part{{Account: alice, Value: 500}}
	_, err = c.Exec(ledger.Msg{From: bob}, func(tx *ledger.Tx) error {
		return tk.Mint(tx, bob, big.NewInt(1), "1", royalties)
	})
	assert.Equal(t, ErrNotMinter, err)

	r, err := c.Exec(ledger.Msg{From: alice}, func(tx *ledger.Tx) error {
		return tk.Mint(tx, bob, big.NewInt(1), "1", royalties)
	})
	require.NoError(t, err)
	assert.Equal(t, Transfer{To: bob, Value: big.NewInt(1)}, r.Find("Transfer")[0].Data)

	_, err = c.Exec(ledger.Msg{From: alice}, func(tx *ledger.Tx) error {
		return tk.Mint(tx, bob, big.NewInt(1), "1", royalties)
	})
	assert.Equal(t, ErrTokenExists, err)

	_, err = c.Exec(ledger.Msg{From: alice}, func(tx *ledger.Tx) error {
		return tk.SafeTransferFrom(tx, bob, alice, big.NewInt(1))
	})
	assert.Equal(t, ErrNotApproved, err)

	var nw *access.NotWhitelistedError
	_, err = c.Exec(ledger.Msg{From: bob}, func(tx *ledger.Tx) error {
		return tk.SafeTransferFrom(tx, bob, carol, big.NewInt(1))
	})
	require.True(t, errors.As(err, &nw))

	_, err = c.Exec(ledger.Msg{From: bob}, func(tx *ledger.Tx) error {
		return tk.Approve(tx, alice, big.NewInt(1))
	})
	require.NoError(t, err)
	_, err = c.Exec(ledger.Msg{From: alice}, func(tx *ledger.Tx) error {
		return tk.SafeTransferFrom(tx, bob, alice, big.NewInt(1))
	})
	require.NoError(t, err)

	// lazy mint through the proxy, the first creator must be a minter
	data := asset.MintData{
		TokenID:   big.NewInt(2),
		TokenURI:  "2",
		Creators:  []asset.Part{{Account: bob, Value: 10000}},
		Royalties: royalties,
	}
	_, err = c.Exec(ledger.Msg{From: alice}, func(tx *ledger.Tx) error {
		return tk.MintAndTransfer(tx.Call(lazy), data, bob)
	})
	assert.Equal(t, ErrNotCreator, err)
	data.Creators[0].Account = alice
	_, err = c.Exec(ledger.Msg{From: alice}, func(tx *ledger.Tx) error {
		return tk.MintAndTransfer(tx.Call(lazy), data, bob)
	})
	require.NoError(t, err)

	c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, alice, tk.OwnerOf(tx, big.NewInt(1)))
		assert.Equal(t, bob, tk.OwnerOf(tx, big.NewInt(2)))
		assert.Equal(t, big.NewInt(1), tk.BalanceOf(tx, bob))
		assert.Equal(t, royalties, tk.Royalties(tx, big.NewInt(2)))
		u, err := tk.TokenURI(tx, big.NewInt(2))
		assert.NoError(t, err)
		assert.Equal(t, "ipfs://2", u)
		_, err = tk.TokenURI(tx, big.NewInt(3))
		assert.Equal(t, ErrNonexistentToken, err)
		return nil
	})
}

func TestERC20(t *testing.T) {
	c := ledger.NewChain(big.NewInt(1))
	tk, err := ledger.DeployContract[*ERC20](c, alice, NewERC20("Wrapped", "WETH", 18, big.NewInt(1000)))
	require.NoError(t, err)

	_, err = c.Exec(ledger.Msg{From: bob}, func(tx *ledger.Tx) error {
		return tk.TransferFrom(tx, alice, bob, big.NewInt(10))
	})
	assert.Equal(t, ErrInsufficientAllowance, err)

	_, err = c.Exec(ledger.Msg{From: alice}, func(tx *ledger.Tx) error {
		return tk.Approve(tx, bob, big.NewInt(10))
	})
	require.NoError(t, err)
	r, err := c.Exec(ledger.Msg{From: bob}, func(tx *ledger.Tx) error {
		return tk.TransferFrom(tx, alice, carol, big.NewInt(10))
	})
	require.NoError(t, err)
	assert.Equal(t, Transfer{From: alice, To: carol, Value: big.NewInt(10)}, r.Find("Transfer")[0].Data)

	_, err = c.Exec(ledger.Msg{From: carol}, func(tx *ledger.Tx) error {
		return tk.Transfer(tx, bob, big.NewInt(11))
	})
	assert.Equal(t, ErrInsufficientBalance, err)

	_, err = c.Exec(ledger.Msg{From: bob}, func(tx *ledger.Tx) error {
		return tk.Mint(tx, bob, big.NewInt(1))
	})
	assert.Equal(t, access.ErrNotOwner, err)

	c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, big.NewInt(990), tk.BalanceOf(tx, alice))
		assert.Equal(t, big.NewInt(10), tk.BalanceOf(tx, carol))
		assert.Equal(t, big.NewInt(0), tk.Allowance(tx, alice, bob))
		assert.Equal(t, big.NewInt(1000), tk.TotalSupply(tx))
		assert.Equal(t, uint8(18), tk.Decimals(tx))
		return nil
	})
}
