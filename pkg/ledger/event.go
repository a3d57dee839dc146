package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

// Event is a log record emitted by a contract during a transaction.
type Event struct {
	Address common.Address `json:"address"`
	Name    string         `json:"event"`
	Data    interface{}    `json:"data"`
}

// Receipt describes a committed transaction.
type Receipt struct {
	Origin common.Address `json:"origin"`
	Time   uint64         `json:"time"`
	Root   common.Hash    `json:"root"`
	Events []Event        `json:"events"`
}

// Find returns the events with the given name.
func (r *Receipt) Find(name string) []Event {
	var r0 []Event
	for _, e := range r.Events {
		if e.Name == name {
			r0 = append(r0, e)
		}
	}
	return r0
}
