package settlement

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// DomainName is the EIP-712 domain name used by the Permit Authority.
	// Permit2 uses name + chainId + verifyingContract (no version field).
	DomainName = "Permit2"

	// WitnessType is the fixed witness type descriptor. Field order is
	// frozen: any change invalidates every previously signed authorization.
	WitnessType = "Witness(bytes extra,address to,uint256 validAfter,uint256 validBefore)"

	// WitnessTypeString is the witness suffix handed to the Permit Authority
	// alongside each transfer. It follows the Permit2 convention: the
	// primary type's trailing member, then all referenced struct types in
	// alphabetical order.
	WitnessTypeString = "Witness witness)TokenPermissions(address token,uint256 amount)" + WitnessType

	// tokenPermissionsType and permitWitnessStub complete the
	// PermitWitnessTransferFrom typehash preimage.
	tokenPermissionsType = "TokenPermissions(address token,uint256 amount)"
	permitWitnessStub    = "PermitWitnessTransferFrom(TokenPermissions permitted,address spender,uint256 nonce,uint256 deadline,"
)

var (
	// PermitAuthorityAddress is the canonical Uniswap Permit2 contract.
	// Same address on all EVM chains via deterministic deployment.
	PermitAuthorityAddress = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")

	// EngineAddress is the canonical settlement engine contract.
	// Vanity address: 0x4020...0001 for easy recognition.
	EngineAddress = common.HexToAddress("0x4020615294c913F045dc10f0a5cdEbd86c280001")

	// DeterministicDeployerAddress is the well-known CREATE2 factory present
	// at the same address on every supported chain.
	DeterministicDeployerAddress = common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")

	// WitnessTypehash is keccak256 of WitnessType. Off-chain signers need
	// this value to construct compatible signatures.
	WitnessTypehash = crypto.Keccak256Hash([]byte(WitnessType))

	// TokenPermissionsTypehash is keccak256 of the TokenPermissions type.
	TokenPermissionsTypehash = crypto.Keccak256Hash([]byte(tokenPermissionsType))

	// PermitWitnessTypehash is the typehash of the full
	// PermitWitnessTransferFrom type including the witness suffix.
	PermitWitnessTypehash = crypto.Keccak256Hash([]byte(permitWitnessStub + WitnessTypeString))

	eip712DomainTypehash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,uint256 chainId,address verifyingContract)"))
)
