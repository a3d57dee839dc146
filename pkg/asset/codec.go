package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

var ErrUnknownClass = errors.New("unknown asset class")

var (
	addressTy, _ = abi.NewType("address", "", nil)
	uint256Ty, _ = abi.NewType("uint256", "", nil)

	partComponents = []abi.ArgumentMarshaling{
		{Name: "account", Type: "address"},
		{Name: "value", Type: "uint96"},
	}

	// PartsTy is the ABI type of a Part list.
	PartsTy, _ = abi.NewType("tuple[]", "", partComponents)

	mintDataTy, _ = abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "tokenId", Type: "uint256"},
		{Name: "tokenURI", Type: "string"},
		{Name: "supply", Type: "uint256"},
		{Name: "creators", Type: "tuple[]", Components: partComponents},
		{Name: "royalties", Type: "tuple[]", Components: partComponents},
		{Name: "signatures", Type: "bytes[]"},
	})

	tokenArgs = abi.Arguments{{Type: addressTy}}
	nftArgs   = abi.Arguments{{Type: addressTy}, {Type: uint256Ty}}
	lazyArgs  = abi.Arguments{{Type: addressTy}, {Type: mintDataTy}}
)

// PartABI is the ABI shape of a Part.
type PartABI struct {
	Account common.Address
	Value   *big.Int
}

type mintDataABI struct {
	TokenId    *big.Int
	TokenURI   string
	Supply     *big.Int
	Creators   []PartABI
	Royalties  []PartABI
	Signatures [][]byte
}

// PartsToABI converts parts into their ABI shape.
func PartsToABI(parts []Part) []PartABI {
	r := make([]PartABI, len(parts))
	for i, p := range parts {
		r[i] = PartABI{Account: p.Account, Value: new(big.Int).SetUint64(p.Value)}
	}
	return r
}

// PartsFromABI converts decoded parts, values must fit 64 bits.
func PartsFromABI(parts []PartABI) ([]Part, error) {
	r := make([]Part, len(parts))
	for i, p := range parts {
		if !p.Value.IsUint64() {
			return nil, fmt.Errorf("part value %v out of range", p.Value)
		}
		r[i] = Part{Account: p.Account, Value: p.Value.Uint64()}
	}
	return r, nil
}

// EncodeToken returns the payload of ERC20 types.
func EncodeToken(token common.Address) []byte {
	b, err := tokenArgs.Pack(token)
	if err != nil {
		// should never happen
		panic(err)
	}
	return b
}

// EncodeNFT returns the payload of ERC721 and ERC1155 types.
func EncodeNFT(token common.Address, id *big.Int) []byte {
	b, err := nftArgs.Pack(token, id)
	if err != nil {
		panic(err)
	}
	return b
}

// EncodeLazy returns the payload of lazily minted types.
func EncodeLazy(token common.Address, m MintData) []byte {
	b, err := lazyArgs.Pack(token, mintDataABI{
		TokenId:    m.TokenID,
		TokenURI:   m.TokenURI,
		Supply:     m.Supply,
		Creators:   PartsToABI(m.Creators),
		Royalties:  PartsToABI(m.Royalties),
		Signatures: m.Signatures,
	})
	if err != nil {
		panic(err)
	}
	return b
}

// Decoded is the typed content of an asset type payload. TokenID is
// nil for fungible classes, Mint is set for lazy classes only.
type Decoded struct {
	Token   common.Address
	TokenID *big.Int
	Mint    *MintData
}

// Codec decodes asset type payloads, keeping recent results in an LRU
// cache keyed by class and payload.
type Codec struct {
	cache *lru.Cache
}

// NewCodec creates a codec caching size decoded payloads.
func NewCodec(size int) *Codec {
	c, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &Codec{cache: c}
}

var defaultCodec = NewCodec(1024)

// Decode decodes t with the package level codec.
func Decode(t Type) (Decoded, error) {
	return defaultCodec.Decode(t)
}

// Decode decodes the payload of t according to its class.
func (c *Codec) Decode(t Type) (Decoded, error) {
	key := string(t.Class[:]) + string(t.Data)
	if v, ok := c.cache.Get(key); ok {
		return v.(Decoded), nil
	}

	d, err := decode(t)
	if err != nil {
		return Decoded{}, err
	}

	c.cache.Add(key, d)
	return d, nil
}

func decode(t Type) (Decoded, error) {
	switch t.Class {
	case ETH:
		return Decoded{}, nil
	case ERC20:
		v, err := tokenArgs.Unpack(t.Data)
		if err != nil {
			return Decoded{}, fmt.Errorf("decode %v payload: %w", t.Class, err)
		}
		return Decoded{Token: v[0].(common.Address)}, nil
	case ERC721, ERC1155:
		v, err := nftArgs.Unpack(t.Data)
		if err != nil {
			return Decoded{}, fmt.Errorf("decode %v payload: %w", t.Class, err)
		}
		return Decoded{Token: v[0].(common.Address), TokenID: v[1].(*big.Int)}, nil
	case ERC721Lazy, ERC1155Lazy:
		v, err := lazyArgs.Unpack(t.Data)
		if err != nil {
			return Decoded{}, fmt.Errorf("decode %v payload: %w", t.Class, err)
		}

		m := *abi.ConvertType(v[1], new(mintDataABI)).(*mintDataABI)
		creators, err := PartsFromABI(m.Creators)
		if err != nil {
			return Decoded{}, err
		}

		royalties, err := PartsFromABI(m.Royalties)
		if err != nil {
			return Decoded{}, err
		}

		return Decoded{
			Token:   v[0].(common.Address),
			TokenID: m.TokenId,
			Mint: &MintData{
				TokenID:    m.TokenId,
				TokenURI:   m.TokenURI,
				Supply:     m.Supply,
				Creators:   creators,
				Royalties:  royalties,
				Signatures: m.Signatures,
			},
		}, nil
	}

	return Decoded{}, fmt.Errorf("%w: %v", ErrUnknownClass, t.Class)
}

// NewETH returns an amount of native coin.
func NewETH(value *big.Int) Asset {
	return Asset{Type: Type{Class: ETH}, Value: value}
}

// NewERC20 returns an amount of the fungible token.
func NewERC20(token common.Address, value *big.Int) Asset {
	return Asset{Type: Type{Class: ERC20, Data: EncodeToken(token)}, Value: value}
}

// NewERC721 returns the single token id of the collection.
func NewERC721(token common.Address, id *big.Int) Asset {
	return Asset{Type: Type{Class: ERC721, Data: EncodeNFT(token, id)}, Value: big.NewInt(1)}
}

// NewERC1155 returns an amount of the multi token id.
func NewERC1155(token common.Address, id, value *big.Int) Asset {
	return Asset{Type: Type{Class: ERC1155, Data: EncodeNFT(token, id)}, Value: value}
}

// NewERC1155Lazy returns an amount of a multi token minted on first
// transfer.
func NewERC1155Lazy(token common.Address, m MintData, value *big.Int) Asset {
	return Asset{Type: Type{Class: ERC1155Lazy, Data: EncodeLazy(token, m)}, Value: value}
}

// NewERC721Lazy returns a collection token minted on first transfer.
func NewERC721Lazy(token common.Address, m MintData) Asset {
	return Asset{Type: Type{Class: ERC721Lazy, Data: EncodeLazy(token, m)}, Value: big.NewInt(1)}
}
