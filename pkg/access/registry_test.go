package access

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	carol = common.HexToAddress("0xca201")
)

func exec(c *ledger.Chain, from common.Address, fn func(t *ledger.Tx) error) error {
	_, err := c.Exec(ledger.Msg{From: from}, fn)
	return err
}

func setup(t *testing.T) (*ledger.Chain, *WalletRegistry, *ContractsRegistry) {
	c := ledger.NewChain(big.NewInt(1))
	wr, err := ledger.DeployContract[*WalletRegistry](c, alice, NewWalletRegistry())
	require.NoError(t, err)
	cr, err := ledger.DeployContract[*ContractsRegistry](c, alice, NewContractsRegistry(wr.Address()))
	require.NoError(t, err)
	return c, wr, cr
}

func TestWalletRegistry(t *testing.T) {
	c, wr, _ := setup(t)

	err := exec(c, bob, func(tx *ledger.Tx) error { return wr.AddWallet(tx, bob) })
	assert.Equal(t, ErrNotOwner, err)

	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return wr.AddWallet(tx, bob) }))
	require.NoError(t, c.View(alice, func(tx *ledger.Tx) error {
		assert.True(t, wr.IsWhitelisted(tx, bob))
		assert.False(t, wr.IsWhitelisted(tx, alice))
		return nil
	}))

	err = exec(c, bob, func(tx *ledger.Tx) error { return wr.RemoveWallet(tx, bob) })
	assert.Equal(t, ErrNotOwner, err)

	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return wr.RemoveWallet(tx, bob) }))
	require.NoError(t, c.View(alice, func(tx *ledger.Tx) error {
		assert.False(t, wr.IsWhitelisted(tx, bob))
		return nil
	}))
}

func TestContractsRegistryDeployNeedsContract(t *testing.T) {
	c := ledger.NewChain(big.NewInt(1))
	_, err := c.Deploy(alice, NewContractsRegistry(bob))
	assert.Equal(t, ErrNotContract, err)
}

func TestContractsRegistryAddContract(t *testing.T) {
	c, wr, cr := setup(t)

	var nw *NotWhitelistedError
	err := exec(c, alice, func(tx *ledger.Tx) error { return cr.AddContract(tx, wr.Address()) })
	require.True(t, errors.As(err, &nw))
	assert.Equal(t, alice, nw.Principal)

	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error {
		if err := wr.AddWallet(tx, alice); err != nil {
			return err
		}
		return wr.AddWallet(tx, bob)
	}))

	err = exec(c, bob, func(tx *ledger.Tx) error { return cr.AddContract(tx, wr.Address()) })
	assert.Equal(t, ErrNotOwner, err)

	err = exec(c, alice, func(tx *ledger.Tx) error { return cr.AddContract(tx, bob) })
	assert.Equal(t, ErrNotContract, err)

	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return cr.AddContract(tx, wr.Address()) }))

	g := Gate{Registry: cr.Address()}
	require.NoError(t, c.View(alice, func(tx *ledger.Tx) error {
		assert.True(t, g.IsWhitelisted(tx, wr.Address()))
		assert.False(t, g.IsWhitelisted(tx, cr.Address()))
		assert.True(t, g.IsWhitelisted(tx, bob))
		assert.False(t, g.IsWhitelisted(tx, carol))
		assert.False(t, g.IsWhitelisted(tx, common.Address{}))

		err := g.Require(tx, alice, carol, bob)
		var nw *NotWhitelistedError
		require.True(t, errors.As(err, &nw))
		assert.Equal(t, carol, nw.Principal)
		return nil
	}))

	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return cr.RemoveContract(tx, wr.Address()) }))
	require.NoError(t, c.View(alice, func(tx *ledger.Tx) error {
		assert.False(t, g.IsWhitelisted(tx, wr.Address()))
		return nil
	}))
}

func TestContractsRegistryOwnership(t *testing.T) {
	c, wr, cr := setup(t)
	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return wr.AddWallet(tx, alice) }))

	var nw *NotWhitelistedError
	err := exec(c, alice, func(tx *ledger.Tx) error { return cr.TransferOwnership(tx, bob) })
	require.True(t, errors.As(err, &nw))
	assert.Equal(t, bob, nw.Principal)

	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return wr.AddWallet(tx, bob) }))
	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return cr.TransferOwnership(tx, bob) }))
	require.NoError(t, c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, bob, cr.Owner(tx))
		return nil
	}))

	err = exec(c, carol, func(tx *ledger.Tx) error { return cr.RenounceOwnership(tx) })
	require.True(t, errors.As(err, &nw))
	assert.Equal(t, carol, nw.Principal)

	require.NoError(t, exec(c, bob, func(tx *ledger.Tx) error { return cr.RenounceOwnership(tx) }))
	require.NoError(t, c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, common.Address{}, cr.Owner(tx))
		return nil
	}))
}

func TestSetWalletRegistry(t *testing.T) {
	c, wr, cr := setup(t)
	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return wr.AddWallet(tx, alice) }))

	wr2, err := ledger.DeployContract[*WalletRegistry](c, bob, NewWalletRegistry())
	require.NoError(t, err)

	err = exec(c, alice, func(tx *ledger.Tx) error { return cr.SetWalletRegistry(tx, carol) })
	assert.Equal(t, ErrNotContract, err)

	require.NoError(t, exec(c, alice, func(tx *ledger.Tx) error { return cr.SetWalletRegistry(tx, wr2.Address()) }))
	require.NoError(t, c.View(alice, func(tx *ledger.Tx) error {
		assert.Equal(t, wr2.Address(), cr.WalletRegistry(tx))
		assert.False(t, cr.IsWalletWhitelisted(tx, alice))
		return nil
	}))
}
