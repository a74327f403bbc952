package settlement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DomainSeparator computes the Permit Authority's EIP-712 domain separator
// for a chain. The Authority's domain has no version field.
func DomainSeparator(chainID *big.Int, authority common.Address) common.Hash {
	buf := make([]byte, 0, 4*32)
	buf = append(buf, eip712DomainTypehash.Bytes()...)
	buf = append(buf, crypto.Keccak256([]byte(DomainName))...)
	buf = append(buf, u256Word(chainID)...)
	buf = append(buf, addressWord(authority)...)
	return crypto.Keccak256Hash(buf)
}

// tokenPermissionsHash computes the struct hash of the permitted token/amount.
func tokenPermissionsHash(p TokenPermissions) common.Hash {
	buf := make([]byte, 0, 3*32)
	buf = append(buf, TokenPermissionsTypehash.Bytes()...)
	buf = append(buf, addressWord(p.Token)...)
	buf = append(buf, u256Word(p.Amount)...)
	return crypto.Keccak256Hash(buf)
}

// PermitTypehashFor derives the PermitWitnessTransferFrom typehash for an
// arbitrary witness type suffix, the way the Permit Authority itself does.
// A caller supplying a different suffix than WitnessTypeString produces a
// digest no payer ever signed.
func PermitTypehashFor(witnessTypeString string) common.Hash {
	return crypto.Keccak256Hash([]byte(permitWitnessStub + witnessTypeString))
}

// PermitStructHash computes the PermitWitnessTransferFrom struct hash with
// the witness digest folded in as the final member, using the canonical
// witness type descriptor.
func PermitStructHash(permit Permit, spender common.Address, witness common.Hash) common.Hash {
	return permitStructHashWith(PermitWitnessTypehash, permit, spender, witness)
}

func permitStructHashWith(typehash common.Hash, permit Permit, spender common.Address, witness common.Hash) common.Hash {
	buf := make([]byte, 0, 6*32)
	buf = append(buf, typehash.Bytes()...)
	buf = append(buf, tokenPermissionsHash(permit.Permitted).Bytes()...)
	buf = append(buf, addressWord(spender)...)
	buf = append(buf, u256Word(permit.Nonce)...)
	buf = append(buf, u256Word(permit.Deadline)...)
	buf = append(buf, witness.Bytes()...)
	return crypto.Keccak256Hash(buf)
}

// PermitDigest computes the full EIP-712 digest the payer signs:
//
//	keccak256("\x19\x01" ‖ domainSeparator ‖ structHash)
//
// This is the value the Permit Authority recovers the signer from, and the
// value Sign produces a signature over.
func PermitDigest(chainID *big.Int, authority common.Address, permit Permit, spender common.Address, witness common.Hash) common.Hash {
	return PermitDigestFor(chainID, authority, permit, spender, witness, WitnessTypeString)
}

// PermitDigestFor is PermitDigest with the witness type suffix taken from
// the caller instead of the canonical constant. The Permit Authority
// reconstructs digests this way from the suffix it is handed per call.
func PermitDigestFor(chainID *big.Int, authority common.Address, permit Permit, spender common.Address, witness common.Hash, witnessTypeString string) common.Hash {
	structHash := permitStructHashWith(PermitTypehashFor(witnessTypeString), permit, spender, witness)
	raw := make([]byte, 0, 2+2*32)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, DomainSeparator(chainID, authority).Bytes()...)
	raw = append(raw, structHash.Bytes()...)
	return crypto.Keccak256Hash(raw)
}
