package ledger

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

var ErrInsufficientBalance = errors.New("insufficient native balance")

var (
	storagePrefix = []byte{0}
	balancePrefix = []byte{1}
	noncePrefix   = []byte{2}
)

// State is the world state of the ledger: contract storage, native
// coin balances and deploy nonces, all kept in a patricia trie.
type State struct {
	db *trie.Database

	mu   sync.Mutex
	trie *trie.Trie
}

// NewState creates an empty state backed by an in-memory database.
func NewState() *State {
	db := trie.NewDatabase(rawdb.NewMemoryDatabase(), nil)
	return &State{
		db:   db,
		trie: trie.NewEmpty(db),
	}
}

func addrPath(prefix []byte, addr common.Address) []byte {
	p := make([]byte, 0, len(prefix)+common.AddressLength)
	p = append(p, prefix...)
	return append(p, addr[:]...)
}

func storagePath(addr common.Address, key []byte) []byte {
	p := make([]byte, 0, len(storagePrefix)+common.AddressLength+len(key))
	p = append(p, storagePrefix...)
	p = append(p, addr[:]...)
	return append(p, key...)
}

func (s *State) get(path []byte, v interface{}) bool {
	s.mu.Lock()
	b := s.trie.MustGet(path)
	s.mu.Unlock()

	if len(b) == 0 {
		return false
	}

	err := rlp.DecodeBytes(b, v)
	if err != nil {
		panic(err)
	}

	return true
}

func (s *State) update(path []byte, v interface{}) {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		// should never happen
		panic(err)
	}

	s.mu.Lock()
	s.trie.MustUpdate(path, b)
	s.mu.Unlock()
}

func (s *State) delete(path []byte) {
	s.mu.Lock()
	s.trie.MustDelete(path)
	s.mu.Unlock()
}

// Balance returns the native coin balance of addr.
func (s *State) Balance(addr common.Address) *big.Int {
	b := new(big.Int)
	s.get(addrPath(balancePrefix, addr), b)
	return b
}

// SetBalance overwrites the native coin balance of addr.
func (s *State) SetBalance(addr common.Address, amount *big.Int) {
	path := addrPath(balancePrefix, addr)
	if amount.Sign() == 0 {
		s.delete(path)
		return
	}
	s.update(path, amount)
}

// Transfer moves native coins between two accounts.
func (s *State) Transfer(from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		return nil
	}

	fb := s.Balance(from)
	if fb.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	s.SetBalance(from, fb.Sub(fb, amount))
	tb := s.Balance(to)
	s.SetBalance(to, tb.Add(tb, amount))
	return nil
}

// Nonce returns the deploy nonce of addr.
func (s *State) Nonce(addr common.Address) uint64 {
	var n uint64
	s.get(addrPath(noncePrefix, addr), &n)
	return n
}

func (s *State) setNonce(addr common.Address, n uint64) {
	s.update(addrPath(noncePrefix, addr), n)
}

// Storage returns the storage view of the contract at addr.
func (s *State) Storage(addr common.Address) Storage {
	return Storage{s: s, addr: addr}
}

// Hash returns the root hash of the state trie.
func (s *State) Hash() common.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.trie.Hash()
}

// Transition returns a state transition on top of a copy of the
// current trie. Nothing is visible in s until the transition is
// committed by the chain.
func (s *State) Transition() *Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &State{
		db:   s.db,
		trie: s.trie.Copy(),
	}
	return newTransition(state)
}

// Storage is the key value storage of a single contract. Values are
// rlp encoded.
type Storage struct {
	s    *State
	addr common.Address
}

// Get decodes the value stored under key into v, it returns false if
// nothing is stored.
func (st Storage) Get(key []byte, v interface{}) bool {
	return st.s.get(storagePath(st.addr, key), v)
}

// Put stores v under key.
func (st Storage) Put(key []byte, v interface{}) {
	st.s.update(storagePath(st.addr, key), v)
}

// Delete removes the value stored under key.
func (st Storage) Delete(key []byte) {
	st.s.delete(storagePath(st.addr, key))
}

// Has reports whether a value is stored under key.
func (st Storage) Has(key []byte) bool {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	return len(st.s.trie.MustGet(storagePath(st.addr, key))) > 0
}

// BigInt returns the integer stored under key, zero if absent.
func (st Storage) BigInt(key []byte) *big.Int {
	v := new(big.Int)
	st.Get(key, v)
	return v
}

// PutBigInt stores v under key, a zero value clears the key.
func (st Storage) PutBigInt(key []byte, v *big.Int) {
	if v.Sign() == 0 {
		st.Delete(key)
		return
	}
	st.Put(key, v)
}

// Bool returns the flag stored under key.
func (st Storage) Bool(key []byte) bool {
	var v bool
	st.Get(key, &v)
	return v
}

// PutBool stores a flag, false clears the key.
func (st Storage) PutBool(key []byte, v bool) {
	if !v {
		st.Delete(key)
		return
	}
	st.Put(key, v)
}

// Address returns the address stored under key.
func (st Storage) Address(key []byte) common.Address {
	var a common.Address
	st.Get(key, &a)
	return a
}
