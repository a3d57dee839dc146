package exchange

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/asset"
)

var (
	ErrOrderNotStarted    = errors.New("order start validation failed")
	ErrOrderExpired       = errors.New("order end validation failed")
	ErrOrderAlreadyFilled = errors.New("order already filled or cancelled")
	ErrInvalidSignature   = errors.New("order signature verification error")
	ErrMakerNotSender     = errors.New("maker is not tx sender")
	ErrTakerMismatch      = errors.New("order taker verification failed")
	ErrAssetsDontMatch    = errors.New("assets don't match")
	ErrUnableToFill       = errors.New("unable to fill")
	ErrNegativeValue      = errors.New("negative asset value")
	ErrRoundingError      = errors.New("rounding error")
	ErrNothingToFill      = errors.New("nothing to fill")
	ErrNotMaker           = errors.New("not a maker")
	ErrZeroSalt           = errors.New("0 salt can't be used")
	ErrRoyaltiesTooHigh   = errors.New("royalties are too high (>50%)")
	ErrPayoutsSum         = errors.New("sum payouts bps not equal 100%")
	ErrUnknownDataType    = errors.New("unknown order data type")
	ErrNotEnoughValue     = errors.New("not enough native value attached")
	ErrNativeOnBothSides  = errors.New("native coin on both sides")
	ErrProxyNotSet        = errors.New("no transfer proxy for asset class")
	ErrZeroRecipient      = errors.New("transfer to the zero address")
)

// UnsupportedPaymentAssetError reports the order, "orderLeft" or
// "orderRight", holding a payment asset that is not whitelisted.
type UnsupportedPaymentAssetError struct {
	Side  string
	Asset asset.Type
}

func (e *UnsupportedPaymentAssetError) Error() string {
	return fmt.Sprintf("%s - one of the payment asset isn't supported", e.Side)
}

// TransferFailedError wraps the failure of one settlement leg.
type TransferFailedError struct {
	Asset asset.Type
	From  common.Address
	To    common.Address
	Err   error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("transfer of %v from %s to %s failed: %v", e.Asset.Class, e.From.Hex(), e.To.Hex(), e.Err)
}

func (e *TransferFailedError) Unwrap() error {
	return e.Err
}
