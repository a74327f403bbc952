package settlement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// WitnessHash computes the canonical struct hash of a witness:
//
//	keccak256(typehash ‖ keccak256(extra) ‖ to ‖ validAfter ‖ validBefore)
//
// Dynamic fields are hashed first and field order matches WitnessType
// exactly; this must stay bit-for-bit compatible with the Permit Authority's
// struct-hash convention or every signature silently breaks. A zero-length
// extra hashes to the well-defined empty keccak digest.
func WitnessHash(w Witness) common.Hash {
	buf := make([]byte, 0, 5*32)
	buf = append(buf, WitnessTypehash.Bytes()...)
	buf = append(buf, crypto.Keccak256(w.Extra)...)
	buf = append(buf, addressWord(w.To)...)
	buf = append(buf, u256Word(w.ValidAfter)...)
	buf = append(buf, u256Word(w.ValidBefore)...)
	return crypto.Keccak256Hash(buf)
}

// addressWord left-pads an address to a 32-byte ABI word.
func addressWord(a common.Address) []byte {
	var word [32]byte
	copy(word[12:], a.Bytes())
	return word[:]
}

// u256Word encodes x as a 32-byte big-endian word. Nil is zero; values are
// assumed to fit in 256 bits, matching uint256 wire semantics.
func u256Word(x *big.Int) []byte {
	v := new(uint256.Int)
	if x != nil {
		v.SetFromBig(x)
	}
	word := v.Bytes32()
	return word[:]
}
