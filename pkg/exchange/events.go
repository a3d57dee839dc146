package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/asset"
)

// Match is emitted for every settled pair of orders.
type Match struct {
	LeftHash     common.Hash    `json:"leftHash"`
	RightHash    common.Hash    `json:"rightHash"`
	LeftMaker    common.Address `json:"leftMaker"`
	RightMaker   common.Address `json:"rightMaker"`
	NewLeftFill  *big.Int       `json:"newLeftFill"`
	NewRightFill *big.Int       `json:"newRightFill"`
	LeftAsset    asset.Type     `json:"leftAsset"`
	RightAsset   asset.Type     `json:"rightAsset"`
}

// Cancel is emitted when a maker cancels an order.
type Cancel struct {
	Hash          common.Hash    `json:"hash"`
	Maker         common.Address `json:"maker"`
	MakeAssetType asset.Type     `json:"makeAssetType"`
	TakeAssetType asset.Type     `json:"takeAssetType"`
}

// Transfer is emitted for every asset movement of a settlement.
type Transfer struct {
	Asset asset.Asset    `json:"asset"`
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	// Kind is one of PAYOUT, ROYALTY, ORIGIN_FEE and PROTOCOL.
	Kind string `json:"kind"`
}

type ProtocolFeeChanged struct {
	OldValue uint64 `json:"oldValue"`
	NewValue uint64 `json:"newValue"`
}

// FeeReceiverChanged has a zero Token for the default receiver.
type FeeReceiverChanged struct {
	Token    common.Address `json:"token"`
	Receiver common.Address `json:"receiver"`
}

type RoyaltiesRegistryChanged struct {
	Registry common.Address `json:"registry"`
}

type MatcherChange struct {
	AssetType asset.Class    `json:"assetType"`
	Matcher   common.Address `json:"matcher"`
}

type ProxyChange struct {
	AssetType asset.Class    `json:"assetType"`
	Proxy     common.Address `json:"proxy"`
}

type WhitelistedPaymentToken struct {
	Token       common.Address `json:"token"`
	Whitelisted bool           `json:"whitelisted"`
}

type WhitelistedNativePaymentToken struct {
	Whitelisted bool `json:"whitelisted"`
}
