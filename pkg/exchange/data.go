package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/helinwang/bridgetower/pkg/asset"
)

// DataType tags the layout of Order.Data.
type DataType [4]byte

func dataTypeOf(name string) DataType {
	var d DataType
	copy(d[:], crypto.Keccak256([]byte(name)))
	return d
}

var (
	// DefaultData orders carry no data and pay their maker.
	DefaultData = DataType{0xff, 0xff, 0xff, 0xff}
	// V1 data is (Part[] payouts, Part[] originFees).
	V1 = dataTypeOf("V1")
	// V2 data is (Part[] payouts, Part[] originFees, bool isMakeFill).
	V2 = dataTypeOf("V2")
)

func (d DataType) String() string {
	switch d {
	case DefaultData:
		return "DEFAULT"
	case V1:
		return "V1"
	case V2:
		return "V2"
	}
	return fmt.Sprintf("0x%x", d[:])
}

var (
	dataV1Ty, _ = abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "payouts", Type: "tuple[]", Components: partComponents},
		{Name: "originFees", Type: "tuple[]", Components: partComponents},
	})
	dataV2Ty, _ = abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "payouts", Type: "tuple[]", Components: partComponents},
		{Name: "originFees", Type: "tuple[]", Components: partComponents},
		{Name: "isMakeFill", Type: "bool"},
	})

	partComponents = []abi.ArgumentMarshaling{
		{Name: "account", Type: "address"},
		{Name: "value", Type: "uint96"},
	}

	dataV1Args = abi.Arguments{{Type: dataV1Ty}}
	dataV2Args = abi.Arguments{{Type: dataV2Ty}}
)

type dataV1ABI struct {
	Payouts    []asset.PartABI
	OriginFees []asset.PartABI
}

type dataV2ABI struct {
	Payouts    []asset.PartABI
	OriginFees []asset.PartABI
	IsMakeFill bool
}

// OrderData is the decoded content of Order.Data.
type OrderData struct {
	Payouts    []asset.Part
	OriginFees []asset.Part
	// IsMakeFill records the fill of the order in make asset units
	// instead of take asset units.
	IsMakeFill bool
}

// EncodeV1 returns the V1 payload of d. IsMakeFill is dropped.
func EncodeV1(d OrderData) []byte {
	b, err := dataV1Args.Pack(dataV1ABI{
		Payouts:    asset.PartsToABI(d.Payouts),
		OriginFees: asset.PartsToABI(d.OriginFees),
	})
	if err != nil {
		panic(err)
	}
	return b
}

// EncodeV2 returns the V2 payload of d.
func EncodeV2(d OrderData) []byte {
	b, err := dataV2Args.Pack(dataV2ABI{
		Payouts:    asset.PartsToABI(d.Payouts),
		OriginFees: asset.PartsToABI(d.OriginFees),
		IsMakeFill: d.IsMakeFill,
	})
	if err != nil {
		panic(err)
	}
	return b
}

// ParseData decodes the data of o. Orders without payouts pay their
// maker.
func ParseData(o Order) (OrderData, error) {
	var d OrderData
	switch o.DataType {
	case DefaultData:
	case V1:
		v, err := dataV1Args.Unpack(o.Data)
		if err != nil {
			return OrderData{}, fmt.Errorf("decode V1 order data: %w", err)
		}

		raw := *abi.ConvertType(v[0], new(dataV1ABI)).(*dataV1ABI)
		d, err = partsData(raw.Payouts, raw.OriginFees)
		if err != nil {
			return OrderData{}, err
		}
	case V2:
		v, err := dataV2Args.Unpack(o.Data)
		if err != nil {
			return OrderData{}, fmt.Errorf("decode V2 order data: %w", err)
		}

		raw := *abi.ConvertType(v[0], new(dataV2ABI)).(*dataV2ABI)
		d, err = partsData(raw.Payouts, raw.OriginFees)
		if err != nil {
			return OrderData{}, err
		}
		d.IsMakeFill = raw.IsMakeFill
	default:
		return OrderData{}, fmt.Errorf("%w: %v", ErrUnknownDataType, o.DataType)
	}

	if len(d.Payouts) == 0 {
		d.Payouts = []asset.Part{{Account: o.Maker, Value: 10000}}
	}
	return d, nil
}

func partsData(payouts, fees []asset.PartABI) (OrderData, error) {
	p, err := asset.PartsFromABI(payouts)
	if err != nil {
		return OrderData{}, err
	}

	f, err := asset.PartsFromABI(fees)
	if err != nil {
		return OrderData{}, err
	}
	return OrderData{Payouts: p, OriginFees: f}, nil
}
