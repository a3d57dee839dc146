package asset

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

var ErrMatcherNotFound = errors.New("not found asset matcher")

// Matcher is a contract matching asset types of a custom class.
type Matcher interface {
	ledger.Contract
	MatchAssets(t *ledger.Tx, left, right Type) (Type, bool)
}

// MatcherRegistry resolves the matcher contract for a class, the zero
// address when none is set.
type MatcherRegistry interface {
	AssetMatcher(t *ledger.Tx, class Class) common.Address
}

// Match returns the type both sides agree on. It tries left against
// right first and right against left when that finds nothing.
func Match(t *ledger.Tx, reg MatcherRegistry, left, right Type) (Type, bool, error) {
	r, ok, err := matchOneSide(t, reg, left, right)
	if err != nil || ok {
		return r, ok, err
	}
	return matchOneSide(t, reg, right, left)
}

func matchOneSide(t *ledger.Tx, reg MatcherRegistry, left, right Type) (Type, bool, error) {
	switch left.Class {
	case ETH:
		if right.Class == ETH {
			return left, true, nil
		}
		return Type{}, false, nil
	case ERC20, ERC721, ERC1155:
		if right.Class == left.Class {
			r, ok := simpleMatch(left, right)
			return r, ok, nil
		}
		return Type{}, false, nil
	}

	if reg != nil {
		if addr := reg.AssetMatcher(t, left.Class); addr != (common.Address{}) {
			m, ok := t.Contract(addr).(Matcher)
			if !ok {
				return Type{}, false, ErrMatcherNotFound
			}
			r, ok := m.MatchAssets(t, left, right)
			return r, ok, nil
		}
	}

	if left.Class == right.Class {
		r, ok := simpleMatch(left, right)
		return r, ok, nil
	}

	return Type{}, false, ErrMatcherNotFound
}

func simpleMatch(left, right Type) (Type, bool) {
	if bytes.Equal(left.Data, right.Data) {
		return left, true
	}
	return Type{}, false
}
