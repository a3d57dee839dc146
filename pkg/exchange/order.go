package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// Order is a signed intent to give MakeAsset for TakeAsset. A zero
// Taker lets anyone take the order, a zero Start or End leaves that
// side of the validity window open.
type Order struct {
	Maker     common.Address
	MakeAsset asset.Asset
	Taker     common.Address
	TakeAsset asset.Asset
	Salt      *big.Int
	Start     uint64
	End       uint64
	DataType  DataType
	Data      []byte
}

var (
	bytes4Ty, _  = abi.NewType("bytes4", "", nil)
	bytes32Ty, _ = abi.NewType("bytes32", "", nil)
	addressTy, _ = abi.NewType("address", "", nil)
	uint256Ty, _ = abi.NewType("uint256", "", nil)

	fingerprintArgs = abi.Arguments{
		{Type: addressTy}, // maker
		{Type: bytes4Ty},  // make class
		{Type: bytes32Ty}, // make data
		{Type: addressTy}, // taker
		{Type: bytes4Ty},  // take class
		{Type: bytes32Ty}, // take data
		{Type: uint256Ty}, // salt
		{Type: uint256Ty}, // start
		{Type: uint256Ty}, // end
		{Type: bytes4Ty},  // data type
		{Type: bytes32Ty}, // data
	}
)

func u256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func salt(o Order) *big.Int {
	if o.Salt == nil {
		return new(big.Int)
	}
	return o.Salt
}

// Fingerprint returns the key of the fill state of o.
func (o Order) Fingerprint() common.Hash {
	b, err := fingerprintArgs.Pack(
		o.Maker,
		[4]byte(o.MakeAsset.Type.Class),
		o.MakeAsset.Type.Hash(),
		o.Taker,
		[4]byte(o.TakeAsset.Type.Class),
		o.TakeAsset.Type.Hash(),
		salt(o),
		u256(o.Start),
		u256(o.End),
		[4]byte(o.DataType),
		ledger.Keccak(o.Data),
	)
	if err != nil {
		// should never happen
		panic(err)
	}
	return ledger.Keccak(b)
}

// validateTime checks that now lies in the validity window of o.
func (o Order) validateTime(now uint64) error {
	if o.Start != 0 && o.Start > now {
		return ErrOrderNotStarted
	}

	if o.End != 0 && o.End < now {
		return ErrOrderExpired
	}
	return nil
}
