package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
	"github.com/helinwang/bridgetower/pkg/proxy"
)

const (
	maxBps        = 10000
	maxRoyaltyBps = 5000
	kindPayout    = "PAYOUT"
	kindRoyalty   = "ROYALTY"
	kindOriginFee = "ORIGIN_FEE"
	kindProtocol  = "PROTOCOL"
)

// RoyaltiesProvider resolves the royalties of a token id.
type RoyaltiesProvider interface {
	GetRoyalties(t *ledger.Tx, token common.Address, id *big.Int) ([]asset.Part, error)
}

type feeSide int

const (
	feeSideNone feeSide = iota
	feeSideMake
	feeSideTake
)

// getFeeSide returns the leg fees are taken from: the native coin
// first, then fungible tokens, then multi tokens.
func getFeeSide(makeClass, takeClass asset.Class) feeSide {
	for _, c := range []asset.Class{asset.ETH, asset.ERC20, asset.ERC1155} {
		if makeClass == c {
			return feeSideMake
		}
		if takeClass == c {
			return feeSideTake
		}
	}
	return feeSideNone
}

func bps(v *big.Int, bp uint64) *big.Int {
	r := new(big.Int).Mul(v, new(big.Int).SetUint64(bp))
	return r.Quo(r, big.NewInt(maxBps))
}

// subFeeInBp takes bp of total out of value. When value is too small
// all of it becomes the fee.
func subFeeInBp(value, total *big.Int, bp uint64) (rest, fee *big.Int) {
	fee = bps(total, bp)
	if value.Cmp(fee) > 0 {
		return new(big.Int).Sub(value, fee), fee
	}
	return new(big.Int), new(big.Int).Set(value)
}

// totalAmount is what the paying side spends for amount: the amount
// plus the protocol fee plus its own origin fees.
func totalAmount(amount *big.Int, protocolFee uint64, originFees []asset.Part) *big.Int {
	total := new(big.Int).Add(amount, bps(amount, protocolFee))
	for _, f := range originFees {
		total.Add(total, bps(amount, f.Value))
	}
	return total
}

// settlement moves the assets of one match. native tracks the part of
// the attached value that is not spent yet.
type settlement struct {
	t      *ledger.Tx
	e      *Exchange
	cfg    *Config
	native *big.Int
}

func (s *settlement) doTransfers(makeMatch, takeMatch asset.Type, f Fill, left, right Order, leftData, rightData OrderData) error {
	switch getFeeSide(makeMatch.Class, takeMatch.Class) {
	case feeSideMake:
		err := s.transfersWithFees(f.LeftValue, left.Maker, leftData, rightData, makeMatch, takeMatch)
		if err != nil {
			return err
		}
		return s.payouts(takeMatch, f.RightValue, right.Maker, leftData.Payouts)
	case feeSideTake:
		err := s.transfersWithFees(f.RightValue, right.Maker, rightData, leftData, takeMatch, makeMatch)
		if err != nil {
			return err
		}
		return s.payouts(makeMatch, f.LeftValue, left.Maker, rightData.Payouts)
	}

	err := s.payouts(makeMatch, f.LeftValue, left.Maker, rightData.Payouts)
	if err != nil {
		return err
	}
	return s.payouts(takeMatch, f.RightValue, right.Maker, leftData.Payouts)
}

// transfersWithFees pays amount of calc from from to the payouts of
// the NFT order, charging protocol fee, royalties and origin fees on
// top of and out of it.
func (s *settlement) transfersWithFees(amount *big.Int, from common.Address, calcData, nftData OrderData, calc, nft asset.Type) error {
	total := totalAmount(amount, s.cfg.ProtocolFee, calcData.OriginFees)
	rest, err := s.protocolFee(total, amount, from, calc)
	if err != nil {
		return err
	}

	rest, err = s.royalties(calc, nft, rest, amount, from)
	if err != nil {
		return err
	}

	rest, _, err = s.fees(calc, rest, amount, calcData.OriginFees, from, kindOriginFee)
	if err != nil {
		return err
	}

	rest, _, err = s.fees(calc, rest, amount, nftData.OriginFees, from, kindOriginFee)
	if err != nil {
		return err
	}
	return s.payouts(calc, rest, from, nftData.Payouts)
}

// protocolFee charges the fee once on each side of the trade, both
// halves paid by the paying side.
func (s *settlement) protocolFee(total, amount *big.Int, from common.Address, calc asset.Type) (*big.Int, error) {
	rest, fee := subFeeInBp(total, amount, 2*s.cfg.ProtocolFee)
	if fee.Sign() == 0 {
		return rest, nil
	}

	var token common.Address
	if calc.Class != asset.ETH {
		d, err := asset.Decode(calc)
		if err != nil {
			return nil, err
		}
		token = d.Token
	}

	to := feeReceiver(s.t, s.e, s.cfg, token)
	return rest, s.transfer(asset.Asset{Type: calc, Value: fee}, from, to, kindProtocol)
}

func (s *settlement) royalties(calc, nft asset.Type, rest, amount *big.Int, from common.Address) (*big.Int, error) {
	parts, err := s.royaltiesOf(nft)
	if err != nil {
		return nil, err
	}

	if asset.SumParts(parts) > maxRoyaltyBps {
		return nil, ErrRoyaltiesTooHigh
	}

	rest, _, err = s.fees(calc, rest, amount, parts, from, kindRoyalty)
	return rest, err
}

// royaltiesOf resolves royalties of minted tokens with the registry.
// Lazy tokens carry their royalties in the mint data.
func (s *settlement) royaltiesOf(nft asset.Type) ([]asset.Part, error) {
	switch nft.Class {
	case asset.ERC721Lazy, asset.ERC1155Lazy:
		d, err := asset.Decode(nft)
		if err != nil {
			return nil, err
		}
		return d.Mint.Royalties, nil
	case asset.ERC721, asset.ERC1155:
	default:
		return nil, nil
	}

	if s.cfg.RoyaltiesRegistry == (common.Address{}) {
		return nil, nil
	}

	reg, ok := s.t.Contract(s.cfg.RoyaltiesRegistry).(RoyaltiesProvider)
	if !ok {
		log.Warn("royalties registry is not a provider", "registry", s.cfg.RoyaltiesRegistry)
		return nil, nil
	}

	d, err := asset.Decode(nft)
	if err != nil {
		return nil, err
	}
	return reg.GetRoyalties(s.t.Call(s.e.Addr), d.Token, d.TokenID)
}

// fees pays each part of amount out of rest and returns what is left
// with the total of the parts.
func (s *settlement) fees(calc asset.Type, rest, amount *big.Int, parts []asset.Part, from common.Address, kind string) (*big.Int, uint64, error) {
	var total uint64
	for _, p := range parts {
		total += p.Value
		var fee *big.Int
		rest, fee = subFeeInBp(rest, amount, p.Value)
		if fee.Sign() == 0 {
			continue
		}

		err := s.transfer(asset.Asset{Type: calc, Value: fee}, from, p.Account, kind)
		if err != nil {
			return nil, 0, err
		}
	}
	return rest, total, nil
}

// payouts splits amount between the payout accounts. The last one
// receives the rounding remainder.
func (s *settlement) payouts(a asset.Type, amount *big.Int, from common.Address, payouts []asset.Part) error {
	if len(payouts) == 0 || asset.SumParts(payouts) != maxBps {
		return ErrPayoutsSum
	}

	rest := new(big.Int).Set(amount)
	last := len(payouts) - 1
	for _, p := range payouts[:last] {
		v := bps(amount, p.Value)
		if v.Sign() == 0 {
			continue
		}

		rest.Sub(rest, v)
		err := s.transfer(asset.Asset{Type: a, Value: v}, from, p.Account, kindPayout)
		if err != nil {
			return err
		}
	}

	if rest.Sign() == 0 {
		return nil
	}
	return s.transfer(asset.Asset{Type: a, Value: rest}, from, payouts[last].Account, kindPayout)
}

// transfer moves one settlement leg. Native coin is paid out of the
// attached value, everything else through the proxy of its class.
func (s *settlement) transfer(a asset.Asset, from, to common.Address, kind string) error {
	err := s.move(a, from, to)
	if err != nil {
		return &TransferFailedError{Asset: a.Type, From: from, To: to, Err: err}
	}

	s.t.Emit(s.e.Addr, "Transfer", Transfer{Asset: a, From: from, To: to, Kind: kind})
	return nil
}

func (s *settlement) move(a asset.Asset, from, to common.Address) error {
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}

	if a.Type.Class == asset.ETH {
		if s.native.Cmp(a.Value) < 0 {
			return ErrNotEnoughValue
		}

		s.native.Sub(s.native, a.Value)
		return s.t.State().Transfer(s.e.Addr, to, a.Value)
	}

	addr := s.e.TransferProxy(s.t, a.Type.Class)
	p, ok := s.t.Contract(addr).(proxy.Transferrer)
	if !ok {
		return ErrProxyNotSet
	}
	return p.Transfer(s.t.Call(s.e.Addr), a, from, to)
}
