package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

// Transition is a pending state change. It owns a private copy of the
// state trie together with the events emitted and the contracts
// deployed so far.
type Transition struct {
	state    *State
	events   []Event
	deployed map[common.Address]Contract
	entered  map[common.Address]bool
}

func newTransition(s *State) *Transition {
	return &Transition{
		state:    s,
		deployed: make(map[common.Address]Contract),
		entered:  make(map[common.Address]bool),
	}
}

// State returns the state the transition is writing to.
func (t *Transition) State() *State {
	return t.state
}

// Events returns the events recorded so far.
func (t *Transition) Events() []Event {
	return t.events
}

func (t *Transition) record(e Event) {
	t.events = append(t.events, e)
}

// Commit finalizes the transition and returns the resulting state.
func (t *Transition) Commit() *State {
	return t.state
}
