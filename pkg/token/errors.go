package token

import "errors"

var (
	ErrNotEnoughUnlockedTokens = errors.New("not enough unlocked tokens")
	ErrInsufficientBalance     = errors.New("insufficient balance for transfer")
	ErrInsufficientAllowance   = errors.New("insufficient allowance")
	ErrNotApproved             = errors.New("caller is not owner nor approved")
	ErrNotPartner              = errors.New("caller is not a partner")
	ErrNotMinter               = errors.New("caller is not a minter")
	ErrNotCreator              = errors.New("first creator must be the minter")
	ErrSupplyExceeded          = errors.New("more than supply")
	ErrZeroSupply              = errors.New("supply should be positive")
	ErrSupplyMismatch          = errors.New("supply differs from the first mint")
	ErrZeroAmount              = errors.New("amount should be positive")
	ErrCreatorsShare           = errors.New("total amount of creators share should be 10000")
	ErrZeroRecipient           = errors.New("recipient should be present")
	ErrZeroRoyalty             = errors.New("royalty value should be positive")
	ErrRoyaltiesTotal          = errors.New("royalty total value should be < 10000")
	ErrTransferToZero          = errors.New("transfer to the zero address")
	ErrLengthMismatch          = errors.New("ids and amounts length mismatch")
	ErrTokenExists             = errors.New("token already minted")
	ErrNonexistentToken        = errors.New("nonexistent token")
	ErrNotAllowed              = errors.New("not allowed")
)
