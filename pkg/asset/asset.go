package asset

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Class is the 4 byte tag of an asset type, the first bytes of the
// keccak hash of the class name.
type Class [4]byte

func classOf(name string) Class {
	var c Class
	copy(c[:], crypto.Keccak256([]byte(name)))
	return c
}

var (
	ETH         = classOf("ETH")
	ERC20       = classOf("ERC20")
	ERC721      = classOf("ERC721")
	ERC1155     = classOf("ERC1155")
	ERC721Lazy  = classOf("ERC721_LAZY")
	ERC1155Lazy = classOf("ERC1155_LAZY")
)

var classNames = map[Class]string{
	ETH:         "ETH",
	ERC20:       "ERC20",
	ERC721:      "ERC721",
	ERC1155:     "ERC1155",
	ERC721Lazy:  "ERC721_LAZY",
	ERC1155Lazy: "ERC1155_LAZY",
}

func (c Class) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return fmt.Sprintf("0x%x", c[:])
}

// MarshalText encodes the class by name.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// IsZero reports whether the tag is unset.
func (c Class) IsZero() bool {
	return c == Class{}
}

// Type is an opaque asset descriptor: the class tag and the ABI
// encoded class specific payload.
type Type struct {
	Class Class
	Data  []byte
}

// Hash returns keccak(data), the part of the type that enters order
// fingerprints.
func (t Type) Hash() common.Hash {
	return crypto.Keccak256Hash(t.Data)
}

func (t Type) String() string {
	return fmt.Sprintf("%v(0x%x)", t.Class, t.Data)
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Class Class         `json:"class"`
		Data  hexutil.Bytes `json:"data"`
	}{t.Class, t.Data})
}

// Asset is an amount of an asset type.
type Asset struct {
	Type  Type     `json:"type"`
	Value *big.Int `json:"value"`
}

// Part is a share of an amount, in basis points.
type Part struct {
	Account common.Address `json:"account"`
	Value   uint64         `json:"value"`
}

// MintData describes a token that is minted on first transfer.
type MintData struct {
	TokenID    *big.Int
	TokenURI   string
	Supply     *big.Int
	Creators   []Part
	Royalties  []Part
	Signatures [][]byte
}

// SumParts returns the total of the parts in basis points.
func SumParts(parts []Part) uint64 {
	var s uint64
	for _, p := range parts {
		s += p.Value
	}
	return s
}
