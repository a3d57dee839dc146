package token

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// DefaultLockPeriod is six months of thirty days, in seconds.
const DefaultLockPeriod uint64 = 15552000

// Lock is one time-released lock created by a trade.
type Lock struct {
	Amount   *big.Int `json:"amount"`
	Start    uint64   `json:"start"`
	End      uint64   `json:"end"`
	Released bool     `json:"released"`
}

// LocksInfo describes the locks of a holder for one token id.
type LocksInfo struct {
	// Locked is the amount still locked at the queried time.
	Locked *big.Int `json:"locked"`
	// Cursor is the index of the first lock not yet released.
	Cursor uint64 `json:"cursor"`
	// Locks is the whole append-only sequence.
	Locks []Lock `json:"locks"`
}

// Locked is emitted when tokens received through a trade get locked.
type Locked struct {
	Holder common.Address `json:"holder"`
	ID     *big.Int       `json:"id"`
	Amount *big.Int       `json:"amount"`
}

// Unlocked is emitted when expired locks are released.
type Unlocked struct {
	Holder common.Address `json:"holder"`
	ID     *big.Int       `json:"id"`
	Amount *big.Int       `json:"amount"`
}

var (
	lockPrefix    = []byte("lock")
	lockLenKey    = []byte("lockLen")
	lockCurKey    = []byte("lockCursor")
	lockPeriodKey = []byte("lockPeriod")
)

// lockLedger keeps per (holder, id) lock sequences in the storage of
// the token at addr.
type lockLedger struct {
	addr common.Address
}

func (l lockLedger) seqKey(prefix []byte, holder common.Address, id *big.Int) []byte {
	return ledger.Key(prefix, holder[:], id.Bytes())
}

func (l lockLedger) lockKey(holder common.Address, id *big.Int, i uint64) []byte {
	return ledger.Key(lockPrefix, holder[:], id.Bytes(), new(big.Int).SetUint64(i).Bytes())
}

func (l lockLedger) bounds(t *ledger.Tx, holder common.Address, id *big.Int) (cursor, n uint64) {
	st := t.Storage(l.addr)
	st.Get(l.seqKey(lockCurKey, holder, id), &cursor)
	st.Get(l.seqKey(lockLenKey, holder, id), &n)
	return
}

func (l lockLedger) get(t *ledger.Tx, holder common.Address, id *big.Int, i uint64) Lock {
	var lk Lock
	if !t.Storage(l.addr).Get(l.lockKey(holder, id, i), &lk) {
		panic("lock index out of range")
	}
	return lk
}

func (l lockLedger) period(t *ledger.Tx) uint64 {
	p := DefaultLockPeriod
	t.Storage(l.addr).Get(lockPeriodKey, &p)
	return p
}

func (l lockLedger) setPeriod(t *ledger.Tx, p uint64) {
	t.Storage(l.addr).Put(lockPeriodKey, p)
}

// lock appends a lock of amount starting now.
func (l lockLedger) lock(t *ledger.Tx, holder common.Address, id, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}

	_, n := l.bounds(t, holder, id)
	now := t.Time()
	end := now + l.period(t)
	if end < now {
		end = math.MaxUint64
	}
	st := t.Storage(l.addr)
	st.Put(l.lockKey(holder, id, n), Lock{Amount: new(big.Int).Set(amount), Start: now, End: end})
	st.Put(l.seqKey(lockLenKey, holder, id), n+1)
	t.Emit(l.addr, "Locked", Locked{Holder: holder, ID: new(big.Int).Set(id), Amount: new(big.Int).Set(amount)})
}

// amounts returns the totals of the unreleased locks that are still
// running and of those that have expired.
func (l lockLedger) amounts(t *ledger.Tx, holder common.Address, id *big.Int) (locked, unlockable *big.Int) {
	locked, unlockable = new(big.Int), new(big.Int)
	cursor, n := l.bounds(t, holder, id)
	now := t.Time()
	for i := cursor; i < n; i++ {
		lk := l.get(t, holder, id, i)
		if lk.Released {
			continue
		}

		if lk.End > now {
			locked.Add(locked, lk.Amount)
		} else {
			unlockable.Add(unlockable, lk.Amount)
		}
	}
	return
}

// sweep releases every expired lock and returns the released amount.
// The cursor moves past the released prefix of the sequence.
func (l lockLedger) sweep(t *ledger.Tx, holder common.Address, id *big.Int) *big.Int {
	released := new(big.Int)
	cursor, n := l.bounds(t, holder, id)
	start := cursor
	now := t.Time()
	st := t.Storage(l.addr)
	prefix := true
	for i := cursor; i < n; i++ {
		lk := l.get(t, holder, id, i)
		if !lk.Released && lk.End <= now {
			lk.Released = true
			st.Put(l.lockKey(holder, id, i), lk)
			released.Add(released, lk.Amount)
		}

		if prefix && lk.Released {
			cursor = i + 1
		} else {
			prefix = false
		}
	}

	if cursor != start {
		st.Put(l.seqKey(lockCurKey, holder, id), cursor)
	}
	return released
}

func (l lockLedger) info(t *ledger.Tx, holder common.Address, id *big.Int) LocksInfo {
	cursor, n := l.bounds(t, holder, id)
	locks := make([]Lock, 0, n)
	for i := uint64(0); i < n; i++ {
		locks = append(locks, l.get(t, holder, id, i))
	}

	locked, _ := l.amounts(t, holder, id)
	return LocksInfo{Locked: locked, Cursor: cursor, Locks: locks}
}
