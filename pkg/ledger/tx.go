package ledger

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrReentrantCall    = errors.New("reentrant call")
	ErrNonPayable       = errors.New("call does not accept value")
	ErrValueNotReceived = errors.New("value was not sent to the contract")
)

type env struct {
	chain   *Chain
	trans   *Transition
	origin  common.Address
	time    uint64
	timeSet bool
}

// Tx is the execution context of a call inside a transaction. Nested
// calls share the transaction environment but carry their own sender.
type Tx struct {
	env    *env
	sender common.Address
	// to received value before the call ran.
	to    common.Address
	value *big.Int
}

// Sender returns the immediate caller.
func (t *Tx) Sender() common.Address {
	return t.sender
}

// Origin returns the account that signed the transaction.
func (t *Tx) Origin() common.Address {
	return t.env.origin
}

// Value returns the native value attached to the call.
func (t *Tx) Value() *big.Int {
	return new(big.Int).Set(t.value)
}

// To returns the account the attached value was credited to.
func (t *Tx) To() common.Address {
	return t.to
}

// Receive returns the value attached to the call when it was credited
// to addr. Value sent anywhere else is not addr's to spend.
func (t *Tx) Receive(addr common.Address) (*big.Int, error) {
	if t.value.Sign() == 0 {
		return new(big.Int), nil
	}

	if t.to != addr {
		return nil, ErrValueNotReceived
	}
	return new(big.Int).Set(t.value), nil
}

// NonPayable fails when value is attached to the call.
func (t *Tx) NonPayable() error {
	if t.value.Sign() != 0 {
		return ErrNonPayable
	}
	return nil
}

// Time returns the block time of the transaction. It is read on first
// use and stays fixed for the rest of the transaction.
func (t *Tx) Time() uint64 {
	if !t.env.timeSet {
		t.env.time = t.env.chain.blockTime()
		t.env.timeSet = true
	}
	return t.env.time
}

// ChainID returns the chain id.
func (t *Tx) ChainID() *big.Int {
	return t.env.chain.ChainID()
}

// State returns the pending state of the transaction.
func (t *Tx) State() *State {
	return t.env.trans.state
}

// Storage returns the pending storage of the contract at addr.
func (t *Tx) Storage(addr common.Address) Storage {
	return t.env.trans.state.Storage(addr)
}

// Call returns the context of a nested call made by from.
func (t *Tx) Call(from common.Address) *Tx {
	return &Tx{env: t.env, sender: from, value: new(big.Int)}
}

// Emit records an event of the contract at addr.
func (t *Tx) Emit(addr common.Address, name string, data interface{}) {
	t.env.trans.record(Event{Address: addr, Name: name, Data: data})
}

// Contract returns the contract deployed at addr, nil if none.
func (t *Tx) Contract(addr common.Address) Contract {
	if c, ok := t.env.trans.deployed[addr]; ok {
		return c
	}
	return t.env.chain.code[addr]
}

// IsContract reports whether code is deployed at addr.
func (t *Tx) IsContract(addr common.Address) bool {
	return t.Contract(addr) != nil
}

// Deploy registers the contract returned by build at the next address
// of the sender. build runs with the sender as caller.
func (t *Tx) Deploy(build Builder) (common.Address, error) {
	st := t.State()
	nonce := st.Nonce(t.sender)
	st.setNonce(t.sender, nonce+1)
	addr := crypto.CreateAddress(t.sender, nonce)

	c, err := build(t, addr)
	if err != nil {
		return common.Address{}, err
	}

	t.env.trans.deployed[addr] = c
	return addr, nil
}

// Enter marks the contract at addr as executing. It fails if the
// contract is already on the call stack.
func (t *Tx) Enter(addr common.Address) error {
	if t.env.trans.entered[addr] {
		return ErrReentrantCall
	}
	t.env.trans.entered[addr] = true
	return nil
}

// Exit clears the mark set by Enter.
func (t *Tx) Exit(addr common.Address) {
	delete(t.env.trans.entered, addr)
}
