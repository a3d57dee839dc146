package exchange

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/helinwang/bridgetower/pkg/asset"
)

// Domain constants of the order signatures.
const (
	DomainName    = "Exchange"
	DomainVersion = "2"
)

var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	AssetTypeTypeHash = crypto.Keccak256Hash([]byte(
		"AssetType(bytes4 assetClass,bytes data)",
	))

	AssetTypeHash = crypto.Keccak256Hash([]byte(
		"Asset(AssetType assetType,uint256 value)AssetType(bytes4 assetClass,bytes data)",
	))

	OrderTypeHash = crypto.Keccak256Hash([]byte(
		"Order(address maker,Asset makeAsset,address taker,Asset takeAsset,uint256 salt,uint256 start,uint256 end,bytes4 dataType,bytes data)" +
			"Asset(AssetType assetType,uint256 value)AssetType(bytes4 assetClass,bytes data)",
	))
)

var (
	domainArgs    = abi.Arguments{{Type: bytes32Ty}, {Type: bytes32Ty}, {Type: bytes32Ty}, {Type: uint256Ty}, {Type: addressTy}}
	assetTypeArgs = abi.Arguments{{Type: bytes32Ty}, {Type: bytes4Ty}, {Type: bytes32Ty}}
	assetArgs     = abi.Arguments{{Type: bytes32Ty}, {Type: bytes32Ty}, {Type: uint256Ty}}
	orderArgs     = abi.Arguments{
		{Type: bytes32Ty}, // typeHash
		{Type: addressTy}, // maker
		{Type: bytes32Ty}, // makeAsset
		{Type: addressTy}, // taker
		{Type: bytes32Ty}, // takeAsset
		{Type: uint256Ty}, // salt
		{Type: uint256Ty}, // start
		{Type: uint256Ty}, // end
		{Type: bytes4Ty},  // dataType
		{Type: bytes32Ty}, // data
	}
)

// Domain is the EIP-712 domain of an exchange deployment.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewDomain returns the domain of the exchange at addr.
func NewDomain(chainID *big.Int, addr common.Address) Domain {
	return Domain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           chainID,
		VerifyingContract: addr,
	}
}

func mustPack(args abi.Arguments, v ...interface{}) []byte {
	b, err := args.Pack(v...)
	if err != nil {
		panic("failed to encode typed data: " + err.Error())
	}
	return b
}

// Separator returns the domain separator.
func (d Domain) Separator() common.Hash {
	return crypto.Keccak256Hash(mustPack(domainArgs,
		DomainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		d.ChainID,
		d.VerifyingContract,
	))
}

func hashAssetType(t asset.Type) common.Hash {
	return crypto.Keccak256Hash(mustPack(assetTypeArgs, AssetTypeTypeHash, [4]byte(t.Class), crypto.Keccak256Hash(t.Data)))
}

func hashAsset(a asset.Asset) common.Hash {
	v := a.Value
	if v == nil {
		v = new(big.Int)
	}
	return crypto.Keccak256Hash(mustPack(assetArgs, AssetTypeHash, hashAssetType(a.Type), v))
}

// StructHash returns the EIP-712 struct hash of o.
func (o Order) StructHash() common.Hash {
	return crypto.Keccak256Hash(mustPack(orderArgs,
		OrderTypeHash,
		o.Maker,
		hashAsset(o.MakeAsset),
		o.Taker,
		hashAsset(o.TakeAsset),
		salt(o),
		u256(o.Start),
		u256(o.End),
		[4]byte(o.DataType),
		crypto.Keccak256Hash(o.Data),
	))
}

// Digest returns the hash the maker of o signs.
func (d Domain) Digest(o Order) common.Hash {
	sep := d.Separator()
	sh := o.StructHash()
	return crypto.Keccak256Hash([]byte("\x19\x01"), sep[:], sh[:])
}

// Sign signs o with key. The recovery id is returned as 27 or 28.
func (d Domain) Sign(o Order, key *ecdsa.PrivateKey) ([]byte, error) {
	h := d.Digest(o)
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return nil, err
	}

	sig[64] += 27
	return sig, nil
}

// Recover returns the signer of digest. Recovery ids 0, 1, 27 and 28
// are accepted.
func Recover(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}

	s := make([]byte, len(sig))
	copy(s, sig)
	if s[64] >= 27 {
		s[64] -= 27
	}

	pub, err := crypto.SigToPub(digest[:], s)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}
