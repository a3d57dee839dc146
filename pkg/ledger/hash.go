package ledger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Keccak returns the legacy Keccak-256 hash of the concatenated
// inputs.
func Keccak(b ...[]byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, e := range b {
		_, err := d.Write(e)
		if err != nil {
			// should not happen
			panic(err)
		}
	}
	var h common.Hash
	d.Sum(h[:0])
	return h
}

// Key derives a fixed size storage key from the given parts. Each
// part is length prefixed, so ("ab", "c") and ("a", "bc") never
// collide.
func Key(parts ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	buf := make([]byte, binary.MaxVarintLen64)
	for _, p := range parts {
		n := binary.PutUvarint(buf, uint64(len(p)))
		d.Write(buf[:n])
		d.Write(p)
	}
	return d.Sum(nil)
}
