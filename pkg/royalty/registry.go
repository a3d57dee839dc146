package royalty

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// Type says where the royalties of a token come from.
type Type uint8

const (
	Unset Type = iota
	ByToken
	TokenNative
	ExternalProvider
	EIP2981
	Unsupported
)

func (t Type) String() string {
	switch t {
	case Unset:
		return "unset"
	case ByToken:
		return "by-token"
	case TokenNative:
		return "token-native"
	case ExternalProvider:
		return "external-provider"
	case EIP2981:
		return "eip-2981"
	case Unsupported:
		return "unsupported"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// weight is the sale price royaltyInfo is queried with.
var weight = big.NewInt(1000000)

var (
	ErrTokenOwnerNotDetected = errors.New("token owner not detected")
	ErrRoyaltiesSum          = errors.New("set by token royalties sum more, than 100%")
	ErrZeroRecipient         = errors.New("royalties recipient should be present")
	ErrWrongType             = errors.New("wrong royalties type")
)

// Provider is a contract computing royalties for tokens it does not
// own.
type Provider interface {
	ledger.Contract
	GetRoyalties(t *ledger.Tx, token common.Address, id *big.Int) ([]asset.Part, error)
}

// Native is a token contract that stores royalties per token id.
type Native interface {
	Royalties(t *ledger.Tx, id *big.Int) []asset.Part
}

// RoyaltyInfo is a token contract answering EIP-2981 queries.
type RoyaltyInfo interface {
	RoyaltyInfo(t *ledger.Tx, id, salePrice *big.Int) (common.Address, *big.Int)
}

// Owned is a contract with an owner.
type Owned interface {
	Owner(t *ledger.Tx) common.Address
}

// RoyaltiesSetForContract is emitted when royalties are set for a
// whole token contract.
type RoyaltiesSetForContract struct {
	Token     common.Address `json:"token"`
	Royalties []asset.Part   `json:"royalties"`
}

var (
	typePrefix     = []byte("type")
	providerPrefix = []byte("provider")
	byTokenPrefix  = []byte("byToken")
)

// Registry resolves royalties per token and token id.
type Registry struct {
	access.GatedOwnable
}

// NewRegistry returns the builder of a registry owned by the deployer.
func NewRegistry(gate access.Gate) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		r := &Registry{GatedOwnable: access.GatedOwnable{
			Ownable: access.Ownable{Addr: addr},
			Gate:    gate,
		}}
		r.InitOwner(t, t.Sender())
		return r, nil
	}
}

// Address returns the address of the registry.
func (r *Registry) Address() common.Address {
	return r.Addr
}

func (r *Registry) checkOwner(t *ledger.Tx, token common.Address) error {
	err := r.Gate.Require(t, t.Sender())
	if err != nil {
		return err
	}

	if t.Sender() == r.Owner(t) {
		return nil
	}

	if o, ok := t.Contract(token).(Owned); ok && o.Owner(t) == t.Sender() {
		return nil
	}

	return ErrTokenOwnerNotDetected
}

// RoyaltiesType returns the stored royalties type of token.
func (r *Registry) RoyaltiesType(t *ledger.Tx, token common.Address) Type {
	var v uint8
	t.Storage(r.Addr).Get(ledger.Key(typePrefix, token[:]), &v)
	return Type(v)
}

func (r *Registry) setType(t *ledger.Tx, token common.Address, typ Type) {
	st := t.Storage(r.Addr)
	key := ledger.Key(typePrefix, token[:])
	if typ == Unset {
		st.Delete(key)
		return
	}
	st.Put(key, uint8(typ))
}

// Provider returns the external provider set for token.
func (r *Registry) Provider(t *ledger.Tx, token common.Address) common.Address {
	return t.Storage(r.Addr).Address(ledger.Key(providerPrefix, token[:]))
}

// RoyaltiesByToken returns the royalties set for the whole token
// contract, ok is false if none were set.
func (r *Registry) RoyaltiesByToken(t *ledger.Tx, token common.Address) (parts []asset.Part, ok bool) {
	ok = t.Storage(r.Addr).Get(ledger.Key(byTokenPrefix, token[:]), &parts)
	return
}

// SetProviderByToken makes provider the royalties source of token.
func (r *Registry) SetProviderByToken(t *ledger.Tx, token, provider common.Address) error {
	err := r.checkOwner(t, token)
	if err != nil {
		return err
	}

	t.Storage(r.Addr).Put(ledger.Key(providerPrefix, token[:]), provider)
	r.setType(t, token, ExternalProvider)
	return nil
}

// SetRoyaltiesByToken sets royalties for every id of token.
func (r *Registry) SetRoyaltiesByToken(t *ledger.Tx, token common.Address, parts []asset.Part) error {
	err := r.checkOwner(t, token)
	if err != nil {
		return err
	}

	var sum uint64
	for _, p := range parts {
		if p.Account == (common.Address{}) {
			return ErrZeroRecipient
		}
		if p.Value == 0 {
			return fmt.Errorf("royalty value for %s should be positive", p.Account.Hex())
		}
		sum += p.Value
	}

	if sum >= 10000 {
		return ErrRoyaltiesSum
	}

	if parts == nil {
		parts = []asset.Part{}
	}
	t.Storage(r.Addr).Put(ledger.Key(byTokenPrefix, token[:]), parts)
	r.setType(t, token, ByToken)
	t.Emit(r.Addr, "RoyaltiesSetForContract", RoyaltiesSetForContract{Token: token, Royalties: parts})
	return nil
}

// ForceSetRoyaltiesType pins the royalties type of token. The
// provider stays as it is.
func (r *Registry) ForceSetRoyaltiesType(t *ledger.Tx, token common.Address, typ Type) error {
	err := r.checkOwner(t, token)
	if err != nil {
		return err
	}

	if typ < ByToken || typ > Unsupported {
		return ErrWrongType
	}

	r.setType(t, token, typ)
	return nil
}

// ClearRoyaltiesType drops the stored type so that the next query
// computes it again.
func (r *Registry) ClearRoyaltiesType(t *ledger.Tx, token common.Address) error {
	err := r.checkOwner(t, token)
	if err != nil {
		return err
	}

	r.setType(t, token, Unset)
	return nil
}

// GetRoyalties returns the royalties of token id. When no type is
// stored it is computed and cached.
func (r *Registry) GetRoyalties(t *ledger.Tx, token common.Address, id *big.Int) ([]asset.Part, error) {
	err := r.Gate.Require(t, t.Sender())
	if err != nil {
		return nil, err
	}

	typ := r.RoyaltiesType(t, token)
	if typ == Unset {
		typ = r.calculateType(t, token)
		r.setType(t, token, typ)
	}

	switch typ {
	case ByToken:
		parts, _ := r.RoyaltiesByToken(t, token)
		return parts, nil
	case TokenNative:
		return r.native(t, token, id), nil
	case ExternalProvider:
		return r.provider(t, token, id), nil
	case EIP2981:
		return r.eip2981(t, token, id), nil
	}

	return nil, nil
}

func (r *Registry) calculateType(t *ledger.Tx, token common.Address) Type {
	if _, ok := r.RoyaltiesByToken(t, token); ok {
		return ByToken
	}

	if r.Provider(t, token) != (common.Address{}) {
		return ExternalProvider
	}

	code := t.Contract(token)
	if _, ok := code.(Native); ok {
		return TokenNative
	}

	if _, ok := code.(RoyaltyInfo); ok {
		return EIP2981
	}

	return Unsupported
}

func (r *Registry) native(t *ledger.Tx, token common.Address, id *big.Int) []asset.Part {
	n, ok := t.Contract(token).(Native)
	if !ok {
		return nil
	}
	return n.Royalties(t.Call(r.Addr), id)
}

func (r *Registry) provider(t *ledger.Tx, token common.Address, id *big.Int) []asset.Part {
	addr := r.Provider(t, token)
	p, ok := t.Contract(addr).(Provider)
	if !ok {
		return nil
	}

	parts, err := p.GetRoyalties(t.Call(r.Addr), token, id)
	if err != nil {
		log.Warn("royalties provider failed", "token", token, "id", id, "provider", addr, "err", err)
		return nil
	}
	return parts
}

func (r *Registry) eip2981(t *ledger.Tx, token common.Address, id *big.Int) []asset.Part {
	ri, ok := t.Contract(token).(RoyaltyInfo)
	if !ok {
		return nil
	}

	receiver, amount := ri.RoyaltyInfo(t.Call(r.Addr), id, weight)
	if receiver == (common.Address{}) || amount == nil || amount.Sign() == 0 {
		return nil
	}

	bps := new(big.Int).Mul(amount, big.NewInt(10000))
	bps.Div(bps, weight)
	if !bps.IsUint64() || bps.Uint64() > 10000 {
		log.Warn("royalty info out of range", "token", token, "id", id, "amount", amount)
		return nil
	}
	return []asset.Part{{Account: receiver, Value: bps.Uint64()}}
}
