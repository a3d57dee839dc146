package access

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotOwner    = errors.New("caller is not the owner")
	ErrZeroAddress = errors.New("new owner is the zero address")
	ErrNotContract = errors.New("not contract address")
	ErrNoRegistry  = errors.New("contracts registry is not deployed")
)

// NotWhitelistedError is returned when a principal taking part in a
// call is not on the allow-list.
type NotWhitelistedError struct {
	Principal common.Address
}

func (e *NotWhitelistedError) Error() string {
	return fmt.Sprintf("%s is not whitelisted", e.Principal.Hex())
}
