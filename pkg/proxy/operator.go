package proxy

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

var (
	ErrNotOperator      = errors.New("operator role: caller is not the operator")
	ErrUnsupportedToken = errors.New("token does not implement the transfer interface")
	ErrUnsupportedClass = errors.New("asset class not supported by proxy")
	ErrWrongValue       = errors.New("erc721 value error")
)

var operatorPrefix = []byte("operator")

// OperatorChanged is emitted when an operator is added or removed.
type OperatorChanged struct {
	Operator common.Address `json:"operator"`
	Status   bool           `json:"status"`
}

// OperatorRole keeps the operators allowed to move assets through a
// proxy. Its owner is the deployer.
type OperatorRole struct {
	access.GatedOwnable
}

func newOperatorRole(t *ledger.Tx, gate access.Gate, addr common.Address) OperatorRole {
	r := OperatorRole{GatedOwnable: access.GatedOwnable{
		Ownable: access.Ownable{Addr: addr},
		Gate:    gate,
	}}
	r.InitOwner(t, t.Sender())
	return r
}

// Address returns the address of the proxy.
func (r OperatorRole) Address() common.Address {
	return r.Addr
}

// IsOperator reports whether addr may call the transfer methods.
func (r OperatorRole) IsOperator(t *ledger.Tx, addr common.Address) bool {
	return t.Storage(r.Addr).Bool(ledger.Key(operatorPrefix, addr[:]))
}

// AddOperator grants addr the operator role.
func (r OperatorRole) AddOperator(t *ledger.Tx, addr common.Address) error {
	return r.setOperator(t, addr, true)
}

// RemoveOperator revokes the operator role.
func (r OperatorRole) RemoveOperator(t *ledger.Tx, addr common.Address) error {
	return r.setOperator(t, addr, false)
}

func (r OperatorRole) setOperator(t *ledger.Tx, addr common.Address, ok bool) error {
	err := r.OnlyOwner(t)
	if err != nil {
		return err
	}

	t.Storage(r.Addr).PutBool(ledger.Key(operatorPrefix, addr[:]), ok)
	t.Emit(r.Addr, "OperatorChanged", OperatorChanged{Operator: addr, Status: ok})
	return nil
}

// onlyOperator checks the caller and both ends of a transfer against
// the allow-list before the operator role.
func (r OperatorRole) onlyOperator(t *ledger.Tx, from, to common.Address) error {
	err := r.Gate.Require(t, t.Sender(), from, to)
	if err != nil {
		return err
	}

	if !r.IsOperator(t, t.Sender()) {
		return ErrNotOperator
	}
	return nil
}
