package ledger

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
)

// Contract is code deployed on the chain. Contracts keep their data
// in the storage of their address, the Go value only holds code.
type Contract interface {
	Address() common.Address
}

// Payable is implemented by contracts that accept native value.
// Exec refuses value sent to any other contract.
type Payable interface {
	Contract
	Payable()
}

// Builder initializes a contract at addr and returns its code.
type Builder func(t *Tx, addr common.Address) (Contract, error)

// Msg is the envelope of a transaction: who sends it, which account
// receives the attached native value.
type Msg struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// Chain is the host ledger. It executes one transaction at a time,
// each on a copy of the state trie that replaces the current state
// only when the transaction succeeds.
type Chain struct {
	chainID *big.Int

	mu     sync.Mutex
	state  *State
	code   map[common.Address]Contract
	manual bool
	now    uint64

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(*Receipt)
}

// NewChain creates an empty chain. Block time follows the wall clock
// until SetTime is called.
func NewChain(chainID *big.Int) *Chain {
	return &Chain{
		chainID: new(big.Int).Set(chainID),
		state:   NewState(),
		code:    make(map[common.Address]Contract),
		subs:    make(map[int]func(*Receipt)),
	}
}

// ChainID returns the chain id used in signature domains.
func (c *Chain) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// SetTime pins the block time to a fixed unix timestamp.
func (c *Chain) SetTime(t uint64) {
	c.mu.Lock()
	c.manual = true
	c.now = t
	c.mu.Unlock()
}

// AdvanceTime moves a pinned block time forward.
func (c *Chain) AdvanceTime(d time.Duration) {
	c.mu.Lock()
	if !c.manual {
		c.manual = true
		c.now = uint64(time.Now().Unix())
	}
	c.now += uint64(d / time.Second)
	c.mu.Unlock()
}

// Time returns the current block time.
func (c *Chain) Time() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockTime()
}

func (c *Chain) blockTime() uint64 {
	if c.manual {
		return c.now
	}
	return uint64(time.Now().Unix())
}

// Hash returns the current state root.
func (c *Chain) Hash() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Hash()
}

// Balance returns the native balance of addr.
func (c *Chain) Balance(addr common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Balance(addr)
}

// Fund credits native coins to addr out of thin air. It is meant for
// genesis allocation and tests.
func (c *Chain) Fund(addr common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	trans := c.state.Transition()
	b := trans.state.Balance(addr)
	trans.state.SetBalance(addr, b.Add(b, amount))
	c.state = trans.Commit()
}

// Contract returns the contract deployed at addr, nil if there is
// none.
func (c *Chain) Contract(addr common.Address) Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code[addr]
}

// Exec runs fn as one atomic transaction. The attached value moves
// from msg.From to msg.To before fn runs. When fn returns an error
// every effect is discarded.
func (c *Chain) Exec(msg Msg, fn func(t *Tx) error) (*Receipt, error) {
	r, err := c.exec(msg, fn)
	if err != nil {
		log.Debug("transaction reverted", "from", msg.From, "to", msg.To, "err", err)
		return nil, err
	}

	log.Debug("transaction committed", "from", msg.From, "to", msg.To, "events", len(r.Events), "root", r.Root)
	c.publish(r)
	return r, nil
}

func (c *Chain) exec(msg Msg, fn func(t *Tx) error) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	trans := c.state.Transition()
	t := c.newTx(trans, msg.From, msg.Value)
	t.to = msg.To
	if t.value.Sign() > 0 {
		if code, ok := c.code[msg.To]; ok {
			if _, ok := code.(Payable); !ok {
				return nil, ErrNonPayable
			}
		}

		err := trans.state.Transfer(msg.From, msg.To, t.value)
		if err != nil {
			return nil, err
		}
	}

	err := fn(t)
	if err != nil {
		return nil, err
	}

	c.state = trans.Commit()
	for addr, code := range trans.deployed {
		c.code[addr] = code
	}

	return &Receipt{
		Origin: msg.From,
		Time:   t.Time(),
		Root:   c.state.Hash(),
		Events: trans.Events(),
	}, nil
}

// View runs fn against a throw-away copy of the state.
func (c *Chain) View(from common.Address, fn func(t *Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	trans := c.state.Transition()
	return fn(c.newTx(trans, from, nil))
}

// Deploy allocates the next contract address of deployer and runs
// build to initialize the contract inside a transaction.
func (c *Chain) Deploy(deployer common.Address, build Builder) (common.Address, error) {
	var addr common.Address
	_, err := c.Exec(Msg{From: deployer}, func(t *Tx) error {
		var err error
		addr, err = t.Deploy(build)
		return err
	})
	return addr, err
}

// Subscribe registers fn to be called with every committed receipt.
// The returned function removes the subscription.
func (c *Chain) Subscribe(fn func(*Receipt)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Chain) publish(r *Receipt) {
	c.subMu.Lock()
	subs := make([]func(*Receipt), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(r)
	}
}

func (c *Chain) newTx(trans *Transition, from common.Address, value *big.Int) *Tx {
	if value == nil {
		value = new(big.Int)
	}

	return &Tx{
		env: &env{
			chain:  c,
			trans:  trans,
			origin: from,
		},
		sender: from,
		value:  new(big.Int).Set(value),
	}
}

// DeployContract deploys build and returns the contract with its
// concrete type.
func DeployContract[T Contract](c *Chain, deployer common.Address, build Builder) (T, error) {
	var zero T
	addr, err := c.Deploy(deployer, build)
	if err != nil {
		return zero, err
	}

	ct, ok := c.Contract(addr).(T)
	if !ok {
		return zero, fmt.Errorf("unexpected contract type %T at %s", c.Contract(addr), addr.Hex())
	}
	return ct, nil
}
