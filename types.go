package settlement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenPermissions is the asset and ceiling a payer authorized.
type TokenPermissions struct {
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
}

// Permit is the authorization envelope signed by the payer. Nonce uniqueness
// and deadline are enforced by the Permit Authority, not by the engine.
type Permit struct {
	Permitted TokenPermissions `json:"permitted"`
	Nonce     *big.Int         `json:"nonce"`
	Deadline  *big.Int         `json:"deadline"`
}

// Witness is the application data bound into the payer's signature.
// Immutable once signed: altering any field invalidates the signature.
type Witness struct {
	Extra       []byte         `json:"extra"`
	To          common.Address `json:"to"`
	ValidAfter  *big.Int       `json:"validAfter"`
	ValidBefore *big.Int       `json:"validBefore"`
}

// SelfPermit carries the parameters of an optional EIP-2612 style
// self-service permit granting the Permit Authority an allowance.
type SelfPermit struct {
	Value    *big.Int `json:"value"`
	Deadline *big.Int `json:"deadline"`
	V        uint8    `json:"v"`
	R        [32]byte `json:"r"`
	S        [32]byte `json:"s"`
}

// Request is one settlement submission. It exists only for the duration of
// a single Settle call; the engine keeps no durable state about it.
type Request struct {
	Permit    Permit         `json:"permit"`
	Amount    *big.Int       `json:"amount"`
	Owner     common.Address `json:"owner"`
	Witness   Witness        `json:"witness"`
	Signature []byte         `json:"signature"`
}

// TransferDetails names the destination and amount handed to the Permit
// Authority for the actual balance movement.
type TransferDetails struct {
	To              common.Address `json:"to"`
	RequestedAmount *big.Int       `json:"requestedAmount"`
}

// SettlementRecorded is emitted exactly once per successful settlement.
type SettlementRecorded struct {
	Owner  common.Address `json:"owner"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
	Token  common.Address `json:"token"`
}

// Receipt is the result of a successful settlement.
type Receipt struct {
	Owner         common.Address `json:"owner"`
	To            common.Address `json:"to"`
	Amount        *big.Int       `json:"amount"`
	Token         common.Address `json:"token"`
	WitnessDigest common.Hash    `json:"witnessDigest"`
}

// SelfPermitOutcome is the two-valued result of the self-permit pre-step.
// The pre-step never hard-fails: a rejected self-permit is reported as
// Skipped and settlement proceeds regardless, since a pre-existing
// allowance may already satisfy the Permit Authority.
type SelfPermitOutcome int

const (
	// SelfPermitSkipped means the self-permit was not applied (no permitter
	// configured, or the token rejected the permit).
	SelfPermitSkipped SelfPermitOutcome = iota
	// SelfPermitApplied means the token accepted the permit and the
	// Authority's allowance was refreshed.
	SelfPermitApplied
)

// String returns a human-readable outcome name.
func (o SelfPermitOutcome) String() string {
	if o == SelfPermitApplied {
		return "applied"
	}
	return "skipped"
}

func bigOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
