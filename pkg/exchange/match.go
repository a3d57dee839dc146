package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// SignatureValidator is a contract maker validating signatures made
// on its behalf.
type SignatureValidator interface {
	IsValidSignature(t *ledger.Tx, hash common.Hash, sig []byte) bool
}

// MatchOrders settles left against right at the price of left. Either
// every transfer of the settlement happens or none does.
func (e *Exchange) MatchOrders(t *ledger.Tx, left Order, sigLeft []byte, right Order, sigRight []byte) error {
	err := t.Enter(e.Addr)
	if err != nil {
		return err
	}
	defer t.Exit(e.Addr)

	err = e.matchOrders(t, left, sigLeft, right, sigRight)
	if err != nil {
		log.Warn("match rejected", "sender", t.Sender(), "left", left.Maker, "right", right.Maker, "err", err)
		return err
	}
	return nil
}

func (e *Exchange) matchOrders(t *ledger.Tx, left Order, sigLeft []byte, right Order, sigRight []byte) error {
	principals := []common.Address{t.Sender(), left.Maker, right.Maker}
	if left.Taker != (common.Address{}) {
		principals = append(principals, left.Taker)
	}
	if right.Taker != (common.Address{}) {
		principals = append(principals, right.Taker)
	}

	err := e.Gate.Require(t, principals...)
	if err != nil {
		return err
	}

	native, err := t.Receive(e.Addr)
	if err != nil {
		return err
	}

	cfg := e.Config(t)
	err = e.checkPayment(t, &cfg, "orderLeft", left)
	if err != nil {
		return err
	}

	err = e.checkPayment(t, &cfg, "orderRight", right)
	if err != nil {
		return err
	}

	err = e.validate(t, left, sigLeft)
	if err != nil {
		return err
	}

	err = e.validate(t, right, sigRight)
	if err != nil {
		return err
	}

	if left.Taker != (common.Address{}) && right.Maker != left.Taker {
		return ErrTakerMismatch
	}
	if right.Taker != (common.Address{}) && left.Maker != right.Taker {
		return ErrTakerMismatch
	}

	makeMatch, takeMatch, err := e.matchAssets(t, left, right)
	if err != nil {
		return err
	}

	leftData, err := ParseData(left)
	if err != nil {
		return err
	}

	rightData, err := ParseData(right)
	if err != nil {
		return err
	}

	leftHash, rightHash := left.Fingerprint(), right.Fingerprint()
	fill, leftFill, rightFill, err := e.updateFills(t, left, right, leftHash, rightHash, leftData, rightData)
	if err != nil {
		return err
	}

	s := &settlement{t: t, e: e, cfg: &cfg, native: native}
	err = s.doTransfers(makeMatch, takeMatch, fill, left, right, leftData, rightData)
	if err != nil {
		return err
	}

	if s.native.Sign() > 0 {
		err = t.State().Transfer(e.Addr, t.Sender(), s.native)
		if err != nil {
			return err
		}
	}

	t.Emit(e.Addr, "Match", Match{
		LeftHash:     leftHash,
		RightHash:    rightHash,
		LeftMaker:    left.Maker,
		RightMaker:   right.Maker,
		NewLeftFill:  leftFill,
		NewRightFill: rightFill,
		LeftAsset:    makeMatch,
		RightAsset:   takeMatch,
	})
	return nil
}

// checkPayment fails when o pays or asks for a fungible asset that is
// not whitelisted. NFT classes always pass.
func (e *Exchange) checkPayment(t *ledger.Tx, cfg *Config, side string, o Order) error {
	for _, a := range []asset.Asset{o.MakeAsset, o.TakeAsset} {
		switch a.Type.Class {
		case asset.ERC20:
			d, err := asset.Decode(a.Type)
			if err != nil || !e.IsWhitelistedPaymentToken(t, d.Token) {
				return &UnsupportedPaymentAssetError{Side: side, Asset: a.Type}
			}
		case asset.ETH:
			if !cfg.NativePayments {
				return &UnsupportedPaymentAssetError{Side: side, Asset: a.Type}
			}
		}
	}
	return nil
}

// validate checks the validity window and the maker's authorization
// of o. Orders of the sender need no signature.
func (e *Exchange) validate(t *ledger.Tx, o Order, sig []byte) error {
	if o.MakeAsset.Value == nil || o.TakeAsset.Value == nil {
		return ErrUnableToFill
	}

	if o.MakeAsset.Value.Sign() < 0 || o.TakeAsset.Value.Sign() < 0 {
		return ErrNegativeValue
	}

	err := o.validateTime(t.Time())
	if err != nil {
		return err
	}

	if salt(o).Sign() == 0 {
		if o.Maker != t.Sender() {
			return ErrMakerNotSender
		}
		return nil
	}

	if o.Maker == t.Sender() {
		return nil
	}

	digest := e.Domain(t).Digest(o)
	if t.IsContract(o.Maker) {
		v, ok := t.Contract(o.Maker).(SignatureValidator)
		if !ok || !v.IsValidSignature(t.Call(e.Addr), digest, sig) {
			return ErrInvalidSignature
		}
		return nil
	}

	signer, err := Recover(digest, sig)
	if err != nil || signer != o.Maker {
		return ErrInvalidSignature
	}
	return nil
}

func (e *Exchange) matchAssets(t *ledger.Tx, left, right Order) (makeMatch, takeMatch asset.Type, err error) {
	var ok bool
	makeMatch, ok, err = asset.Match(t.Call(e.Addr), e, left.MakeAsset.Type, right.TakeAsset.Type)
	if err != nil {
		return
	}
	if !ok {
		err = ErrAssetsDontMatch
		return
	}

	takeMatch, ok, err = asset.Match(t.Call(e.Addr), e, left.TakeAsset.Type, right.MakeAsset.Type)
	if err != nil {
		return
	}
	if !ok {
		err = ErrAssetsDontMatch
		return
	}

	if makeMatch.Class == asset.ETH && takeMatch.Class == asset.ETH {
		err = ErrNativeOnBothSides
	}
	return
}

func (e *Exchange) orderFill(t *ledger.Tx, o Order, h common.Hash) *big.Int {
	if salt(o).Sign() == 0 {
		return new(big.Int)
	}
	return e.Fill(t, h)
}

func isFilled(o Order, fill *big.Int, isMakeFill bool) bool {
	if isMakeFill {
		return fill.Cmp(o.MakeAsset.Value) >= 0
	}
	return fill.Cmp(o.TakeAsset.Value) >= 0
}

// updateFills computes the fill of the pair and records the new fill
// of both orders before any asset moves.
func (e *Exchange) updateFills(t *ledger.Tx, left, right Order, leftHash, rightHash common.Hash, leftData, rightData OrderData) (f Fill, leftFill, rightFill *big.Int, err error) {
	leftFill = e.orderFill(t, left, leftHash)
	rightFill = e.orderFill(t, right, rightHash)
	if isFilled(left, leftFill, leftData.IsMakeFill) || isFilled(right, rightFill, rightData.IsMakeFill) {
		err = ErrOrderAlreadyFilled
		return
	}

	f, err = fillOrders(left, right, leftFill, rightFill, leftData.IsMakeFill, rightData.IsMakeFill)
	if err != nil {
		return
	}

	if f.LeftValue.Sign() == 0 || f.RightValue.Sign() == 0 {
		err = ErrNothingToFill
		return
	}

	if salt(left).Sign() != 0 {
		if leftData.IsMakeFill {
			leftFill = new(big.Int).Add(leftFill, f.LeftValue)
		} else {
			leftFill = new(big.Int).Add(leftFill, f.RightValue)
		}
		e.setFill(t, leftHash, leftFill)
	}

	if salt(right).Sign() != 0 {
		if rightData.IsMakeFill {
			rightFill = new(big.Int).Add(rightFill, f.RightValue)
		} else {
			rightFill = new(big.Int).Add(rightFill, f.LeftValue)
		}
		e.setFill(t, rightHash, rightFill)
	}
	return
}
