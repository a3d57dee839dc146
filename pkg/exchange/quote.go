package exchange

import (
	"math/big"

	"github.com/helinwang/bridgetower/pkg/asset"
)

// Breakdown is how a payment of one matched amount is split.
type Breakdown struct {
	// Total is what the paying side spends.
	Total      *big.Int
	Protocol   *big.Int
	Royalties  *big.Int
	OriginFees *big.Int
	// Proceeds is what reaches the payouts of the NFT side.
	Proceeds *big.Int
}

// Quote computes the split settlement performs when amount is paid for
// an NFT with royalties, buyerFees being the origin fees of the paying
// order and sellerFees those of the NFT order.
func Quote(amount *big.Int, protocolFee uint64, royalties, buyerFees, sellerFees []asset.Part) (Breakdown, error) {
	if asset.SumParts(royalties) > maxRoyaltyBps {
		return Breakdown{}, ErrRoyaltiesTooHigh
	}

	b := Breakdown{
		Total:      totalAmount(amount, protocolFee, buyerFees),
		Royalties:  new(big.Int),
		OriginFees: new(big.Int),
	}

	rest, fee := subFeeInBp(b.Total, amount, 2*protocolFee)
	b.Protocol = fee

	for _, p := range royalties {
		rest, fee = subFeeInBp(rest, amount, p.Value)
		b.Royalties.Add(b.Royalties, fee)
	}

	for _, p := range append(append([]asset.Part(nil), buyerFees...), sellerFees...) {
		rest, fee = subFeeInBp(rest, amount, p.Value)
		b.OriginFees.Add(b.OriginFees, fee)
	}

	b.Proceeds = rest
	return b, nil
}
