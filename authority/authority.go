package authority

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	settlement "github.com/x402-foundation/x402-settlement"
)

// Authority errors, reported independently of the engine's own validation.
var (
	ErrSignatureExpired = errors.New("signature_expired")
	ErrNonceUsed        = errors.New("invalid_nonce")
	ErrInvalidSigner    = errors.New("invalid_signer")
	ErrInvalidAmount    = errors.New("invalid_requested_amount")
	ErrBadSignature     = errors.New("malformed_signature")
)

// Authority is an in-process Permit Authority. It verifies the payer's
// EIP-712 signature (with the witness digest bound in), enforces permit
// deadline and unordered nonce uniqueness, and moves balances on a Ledger
// using the allowance granted to the Authority's address.
type Authority struct {
	addr    common.Address
	spender common.Address
	chainID *big.Int
	ledger  *Ledger
	now     func() time.Time

	// beforeTransfer simulates the untrusted nature of the Authority: it
	// runs arbitrary code mid-settlement, before the balance movement.
	beforeTransfer func(ctx context.Context)

	// used holds the unordered nonce bitmaps per owner, keyed by the
	// 248-bit word position.
	used map[common.Address]map[string]*uint256.Int
}

// Option configures an Authority.
type Option func(*Authority)

// WithAddress overrides the Authority's identity (canonical Permit2
// address by default).
func WithAddress(addr common.Address) Option {
	return func(a *Authority) { a.addr = addr }
}

// WithClock overrides the time source for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// WithBeforeTransfer installs a hook invoked mid-settlement, before the
// balance movement. Used to exercise callback behavior of untrusted
// authorities (reentrancy attempts in particular).
func WithBeforeTransfer(fn func(ctx context.Context)) Option {
	return func(a *Authority) { a.beforeTransfer = fn }
}

// New creates an Authority bound to a ledger. Signatures are verified with
// spender as the authorized caller identity, mirroring how the on-chain
// Authority binds msg.sender into every digest.
func New(chainID *big.Int, spender common.Address, ledger *Ledger, opts ...Option) *Authority {
	a := &Authority{
		addr:    settlement.PermitAuthorityAddress,
		spender: spender,
		chainID: chainID,
		ledger:  ledger,
		now:     time.Now,
		used:    make(map[common.Address]map[string]*uint256.Int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Address implements settlement.PermitAuthority.
func (a *Authority) Address() common.Address { return a.addr }

// Permit implements settlement.TokenPermitter by forwarding to the ledger.
func (a *Authority) Permit(ctx context.Context, token, owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte) error {
	return a.ledger.Permit(ctx, token, owner, spender, value, deadline, v, r, s)
}

// PermitWitnessTransferFrom implements settlement.PermitAuthority.
//
// Check order mirrors the reference Authority: deadline, requested amount,
// nonce, signature, then the transfer itself. The witness type suffix is
// folded into the reconstructed digest, so a tampered suffix or witness
// surfaces as ErrInvalidSigner. The call is atomic the way an on-chain
// revert is: the nonce bit is flipped only after the transfer succeeds, so
// any failure leaves the authorization spendable.
func (a *Authority) PermitWitnessTransferFrom(
	ctx context.Context,
	permit settlement.Permit,
	transfer settlement.TransferDetails,
	owner common.Address,
	witness common.Hash,
	witnessTypeString string,
	signature []byte,
) error {
	if big.NewInt(a.now().Unix()).Cmp(zeroIfNil(permit.Deadline)) > 0 {
		return ErrSignatureExpired
	}
	if zeroIfNil(transfer.RequestedAmount).Cmp(zeroIfNil(permit.Permitted.Amount)) > 0 {
		return ErrInvalidAmount
	}
	bitmap, flag, err := a.nonceBit(owner, permit.Nonce)
	if err != nil {
		return err
	}

	digest := settlement.PermitDigestFor(a.chainID, a.addr, permit, a.spender, witness, witnessTypeString)
	signer, err := recoverSignature(digest, signature)
	if err != nil {
		return err
	}
	if signer != owner {
		return ErrInvalidSigner
	}

	if a.beforeTransfer != nil {
		a.beforeTransfer(ctx)
	}

	if err := a.ledger.TransferFrom(permit.Permitted.Token, a.addr, owner, transfer.To, zeroIfNil(transfer.RequestedAmount)); err != nil {
		return err
	}
	bitmap.Or(bitmap, flag)
	return nil
}

// nonceBit locates the nonce's bit in the owner's bitmap, failing if the
// bit is already set. Unordered nonces: word position is nonce >> 8, bit is
// the low byte. The caller flips the bit on success only.
func (a *Authority) nonceBit(owner common.Address, nonce *big.Int) (*uint256.Int, *uint256.Int, error) {
	n := new(uint256.Int)
	n.SetFromBig(zeroIfNil(nonce))
	wordPos := new(uint256.Int).Rsh(n, 8)
	bit := uint(n.Uint64() & 0xff)
	flag := new(uint256.Int).Lsh(uint256.NewInt(1), bit)

	bitmaps, ok := a.used[owner]
	if !ok {
		bitmaps = make(map[string]*uint256.Int)
		a.used[owner] = bitmaps
	}
	key := wordPos.Hex()
	bitmap, ok := bitmaps[key]
	if !ok {
		bitmap = new(uint256.Int)
		bitmaps[key] = bitmap
	}
	if new(uint256.Int).And(bitmap, flag).Sign() != 0 {
		return nil, nil, ErrNonceUsed
	}
	return bitmap, flag, nil
}

func recoverSignature(digest common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, ErrBadSignature
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, ErrBadSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func zeroIfNil(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
