package exchange

import (
	"math/big"
)

// Fill is the outcome of matching two orders: LeftValue of the left
// make asset against RightValue of the right make asset.
type Fill struct {
	LeftValue  *big.Int
	RightValue *big.Int
}

// remaining returns what is left of o after fill, in make and take
// units.
func remaining(o Order, fill *big.Int, isMakeFill bool) (makeValue, takeValue *big.Int, err error) {
	mv, tv := o.MakeAsset.Value, o.TakeAsset.Value
	if isMakeFill {
		makeValue = new(big.Int).Sub(mv, fill)
		if makeValue.Sign() < 0 {
			makeValue.SetInt64(0)
		}
		takeValue, err = partialAmountFloor(tv, mv, makeValue)
		return
	}

	takeValue = new(big.Int).Sub(tv, fill)
	if takeValue.Sign() < 0 {
		takeValue.SetInt64(0)
	}
	makeValue, err = partialAmountFloor(mv, tv, takeValue)
	return
}

// fillOrders computes how much of the two orders can be exchanged,
// given what was already filled. The left order's price is used.
func fillOrders(left, right Order, leftFill, rightFill *big.Int, leftMakeFill, rightMakeFill bool) (Fill, error) {
	leftMake, leftTake, err := remaining(left, leftFill, leftMakeFill)
	if err != nil {
		return Fill{}, err
	}

	rightMake, rightTake, err := remaining(right, rightFill, rightMakeFill)
	if err != nil {
		return Fill{}, err
	}

	if rightTake.Cmp(leftMake) > 0 {
		return fillLeft(leftMake, leftTake, right.MakeAsset.Value, right.TakeAsset.Value)
	}
	return fillRight(left.MakeAsset.Value, left.TakeAsset.Value, rightMake, rightTake)
}

// fillLeft fills the left order completely.
func fillLeft(leftMake, leftTake, rightMake, rightTake *big.Int) (Fill, error) {
	rightTakeValue, err := partialAmountFloor(leftTake, rightMake, rightTake)
	if err != nil {
		return Fill{}, err
	}

	if rightTakeValue.Cmp(leftMake) > 0 {
		return Fill{}, ErrUnableToFill
	}
	return Fill{LeftValue: leftMake, RightValue: leftTake}, nil
}

// fillRight fills the right order completely.
func fillRight(leftMake, leftTake, rightMake, rightTake *big.Int) (Fill, error) {
	makerValue, err := partialAmountFloor(rightTake, leftMake, leftTake)
	if err != nil {
		return Fill{}, err
	}

	if makerValue.Cmp(rightMake) > 0 {
		return Fill{}, ErrUnableToFill
	}
	return Fill{LeftValue: rightTake, RightValue: makerValue}, nil
}

// partialAmountFloor returns floor(numerator * target / denominator),
// rejecting results whose rounding error reaches 0.1%.
func partialAmountFloor(numerator, denominator, target *big.Int) (*big.Int, error) {
	if denominator.Sign() == 0 {
		return nil, ErrUnableToFill
	}

	prod := new(big.Int).Mul(numerator, target)
	q, rem := new(big.Int).QuoRem(prod, denominator, new(big.Int))
	if rem.Sign() != 0 && new(big.Int).Mul(rem, big.NewInt(1000)).Cmp(prod) >= 0 {
		return nil, ErrRoundingError
	}
	return q, nil
}
