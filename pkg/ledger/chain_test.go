package ledger

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	addr common.Address
}

func (c *counter) Address() common.Address {
	return c.addr
}

var counterKey = []byte("count")

func (c *counter) inc(t *Tx) {
	st := t.Storage(c.addr)
	n := st.BigInt(counterKey)
	st.PutBigInt(counterKey, n.Add(n, big.NewInt(1)))
	t.Emit(c.addr, "Inc", n.Uint64())
}

func deployCounter(t *testing.T, c *Chain, owner common.Address) *counter {
	addr, err := c.Deploy(owner, func(tx *Tx, addr common.Address) (Contract, error) {
		return &counter{addr: addr}, nil
	})
	require.NoError(t, err)
	return c.Contract(addr).(*counter)
}

func TestExecCommit(t *testing.T) {
	c := NewChain(big.NewInt(1))
	owner := common.HexToAddress("0x01")
	ct := deployCounter(t, c, owner)
	root := c.Hash()

	r, err := c.Exec(Msg{From: owner}, func(tx *Tx) error {
		ct.inc(tx)
		ct.inc(tx)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, r.Find("Inc"), 2)
	assert.NotEqual(t, root, r.Root)
	assert.Equal(t, r.Root, c.Hash())

	err = c.View(owner, func(tx *Tx) error {
		assert.Equal(t, big.NewInt(2), tx.Storage(ct.addr).BigInt(counterKey))
		return nil
	})
	require.NoError(t, err)
}

func TestExecRevert(t *testing.T) {
	c := NewChain(big.NewInt(1))
	owner := common.HexToAddress("0x01")
	ct := deployCounter(t, c, owner)
	root := c.Hash()

	var published int
	cancel := c.Subscribe(func(*Receipt) { published++ })
	defer cancel()

	boom := errors.New("boom")
	_, err := c.Exec(Msg{From: owner}, func(tx *Tx) error {
		ct.inc(tx)
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, root, c.Hash())
	assert.Equal(t, 0, published)

	_, err = c.Exec(Msg{From: owner}, func(tx *Tx) error {
		ct.inc(tx)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, published)
}

func TestExecValue(t *testing.T) {
	c := NewChain(big.NewInt(1))
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	c.Fund(a, big.NewInt(100))

	_, err := c.Exec(Msg{From: a, To: b, Value: big.NewInt(30)}, func(tx *Tx) error {
		assert.Equal(t, big.NewInt(30), tx.Value())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(70), c.Balance(a))
	assert.Equal(t, big.NewInt(30), c.Balance(b))

	_, err = c.Exec(Msg{From: a, To: b, Value: big.NewInt(71)}, func(tx *Tx) error { return nil })
	assert.Equal(t, ErrInsufficientBalance, err)
	assert.Equal(t, big.NewInt(70), c.Balance(a))
}

type vault struct {
	counter
}

func (v *vault) Payable() {}

func TestExecValueToContracts(t *testing.T) {
	c := NewChain(big.NewInt(1))
	a := common.HexToAddress("0x0a")
	c.Fund(a, big.NewInt(100))

	ct := deployCounter(t, c, a)
	_, err := c.Exec(Msg{From: a, To: ct.addr, Value: big.NewInt(10)}, func(tx *Tx) error { return nil })
	assert.Equal(t, ErrNonPayable, err)
	assert.Equal(t, big.NewInt(100), c.Balance(a))

	addr, err := c.Deploy(a, func(tx *Tx, addr common.Address) (Contract, error) {
		return &vault{counter{addr: addr}}, nil
	})
	require.NoError(t, err)

	_, err = c.Exec(Msg{From: a, To: addr, Value: big.NewInt(10)}, func(tx *Tx) error {
		assert.Equal(t, addr, tx.To())
		v, err := tx.Receive(addr)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(10), v)

		_, err = tx.Receive(ct.addr)
		assert.Equal(t, ErrValueNotReceived, err)
		assert.Equal(t, ErrNonPayable, tx.NonPayable())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), c.Balance(addr))
}

func TestReceiveWithoutValue(t *testing.T) {
	c := NewChain(big.NewInt(1))
	a := common.HexToAddress("0x0a")
	err := c.View(a, func(tx *Tx) error {
		v, err := tx.Receive(common.HexToAddress("0x0b"))
		require.NoError(t, err)
		assert.Equal(t, 0, v.Sign())
		assert.NoError(t, tx.NonPayable())
		return nil
	})
	require.NoError(t, err)
}

func TestDeployAddresses(t *testing.T) {
	c := NewChain(big.NewInt(1))
	owner := common.HexToAddress("0x01")
	c0 := deployCounter(t, c, owner)
	c1 := deployCounter(t, c, owner)
	assert.NotEqual(t, c0.addr, c1.addr)

	err := c.View(owner, func(tx *Tx) error {
		assert.True(t, tx.IsContract(c0.addr))
		assert.False(t, tx.IsContract(owner))
		return nil
	})
	require.NoError(t, err)
}

func TestDeployFailureLeavesNoCode(t *testing.T) {
	c := NewChain(big.NewInt(1))
	owner := common.HexToAddress("0x01")
	_, err := c.Deploy(owner, func(tx *Tx, addr common.Address) (Contract, error) {
		return nil, errors.New("init failed")
	})
	assert.Error(t, err)

	ct := deployCounter(t, c, owner)
	assert.NotNil(t, c.Contract(ct.addr))
}

func TestEnterExit(t *testing.T) {
	c := NewChain(big.NewInt(1))
	addr := common.HexToAddress("0x0c")
	err := c.View(addr, func(tx *Tx) error {
		require.NoError(t, tx.Enter(addr))
		assert.Equal(t, ErrReentrantCall, tx.Call(addr).Enter(addr))
		tx.Exit(addr)
		assert.NoError(t, tx.Enter(addr))
		return nil
	})
	require.NoError(t, err)
}

func TestTime(t *testing.T) {
	c := NewChain(big.NewInt(1))
	c.SetTime(1000)
	c.AdvanceTime(time.Minute)
	assert.Equal(t, uint64(1060), c.Time())

	err := c.View(common.Address{}, func(tx *Tx) error {
		assert.Equal(t, uint64(1060), tx.Time())
		return nil
	})
	require.NoError(t, err)
}

func TestKey(t *testing.T) {
	assert.NotEqual(t, Key([]byte("ab"), []byte("c")), Key([]byte("a"), []byte("bc")))
	assert.Len(t, Key([]byte("x")), 32)
	assert.Equal(t, common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"), Keccak())
}
