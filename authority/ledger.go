// Package authority provides an in-process Permit Authority with full
// signature-transfer semantics: EIP-712 signature recovery, unordered nonce
// bookkeeping, deadline enforcement, and allowance-backed balance movement
// over an in-memory token ledger. It exists for hermetic testing and local
// simulation; the chain package provides the on-chain counterpart.
package authority

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Ledger errors.
var (
	ErrUnknownToken          = errors.New("unknown_token")
	ErrInsufficientBalance   = errors.New("insufficient_balance")
	ErrInsufficientAllowance = errors.New("insufficient_allowance")
	ErrPermitExpired         = errors.New("permit_expired")
	ErrInvalidPermitSig      = errors.New("invalid_permit_signature")
)

var (
	permitTypehash      = crypto.Keccak256Hash([]byte("Permit(address owner,address spender,uint256 value,uint256 deadline,uint256 nonce)"))
	erc20DomainTypehash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	maxUint256          = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// MaxAllowance returns the infinite-allowance sentinel (2^256 - 1).
// Infinite allowances are never decremented on transfer.
func MaxAllowance() *big.Int {
	return new(big.Int).Set(maxUint256)
}

type token struct {
	name       string
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	nonces     map[common.Address]*big.Int
}

// Ledger is an in-memory multi-token ERC-20 ledger with EIP-2612 style
// self-permits. Not safe for concurrent use; the settlement engine executes
// within one call frame, matching the reference environment.
type Ledger struct {
	chainID *big.Int
	tokens  map[common.Address]*token
	now     func() time.Time
}

// NewLedger creates a ledger whose token permit domains are bound to chainID.
func NewLedger(chainID *big.Int) *Ledger {
	return &Ledger{
		chainID: chainID,
		tokens:  make(map[common.Address]*token),
		now:     time.Now,
	}
}

// SetClock overrides the time source used for permit deadline checks.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// CreateToken registers a token contract address with a permit domain name.
func (l *Ledger) CreateToken(addr common.Address, name string) {
	l.tokens[addr] = &token{
		name:       name,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		nonces:     make(map[common.Address]*big.Int),
	}
}

// Mint credits amount to addr.
func (l *Ledger) Mint(tokenAddr, addr common.Address, amount *big.Int) error {
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}
	t.balances[addr] = new(big.Int).Add(t.balance(addr), amount)
	return nil
}

// BalanceOf returns addr's balance; zero for unknown holders.
func (l *Ledger) BalanceOf(tokenAddr, addr common.Address) *big.Int {
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(t.balance(addr))
}

// Approve sets owner's allowance for spender.
func (l *Ledger) Approve(tokenAddr, owner, spender common.Address, amount *big.Int) error {
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}
	t.setAllowance(owner, spender, amount)
	return nil
}

// Allowance returns owner's allowance for spender.
func (l *Ledger) Allowance(tokenAddr, owner, spender common.Address) *big.Int {
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(t.allowance(owner, spender))
}

// TransferFrom moves amount from `from` to `to` on behalf of spender,
// consuming allowance unless spender is the owner or the allowance is
// infinite.
func (l *Ledger) TransferFrom(tokenAddr, spender, from, to common.Address, amount *big.Int) error {
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}
	if spender != from {
		allowed := t.allowance(from, spender)
		if allowed.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		if allowed.Cmp(maxUint256) < 0 {
			t.setAllowance(from, spender, new(big.Int).Sub(allowed, amount))
		}
	}
	balance := t.balance(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[from] = new(big.Int).Sub(balance, amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	return nil
}

// Permit applies an EIP-2612 self-permit: verifies the deadline and the
// owner's signature over the token's permit digest, consumes the permit
// nonce, and sets the allowance.
func (l *Ledger) Permit(_ context.Context, tokenAddr, owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte) error {
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}
	if deadline.Cmp(big.NewInt(l.now().Unix())) < 0 {
		return ErrPermitExpired
	}
	digest := l.permitDigest(tokenAddr, t, owner, spender, value, deadline, t.nonce(owner))
	signer, err := recoverSigner(digest, v, r, s)
	if err != nil || signer != owner {
		return ErrInvalidPermitSig
	}
	t.nonces[owner] = new(big.Int).Add(t.nonce(owner), big.NewInt(1))
	t.setAllowance(owner, spender, value)
	return nil
}

// PermitDigest exposes the digest a payer must sign for Permit, using the
// owner's current permit nonce.
func (l *Ledger) PermitDigest(tokenAddr, owner, spender common.Address, value, deadline *big.Int) (common.Hash, error) {
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return common.Hash{}, ErrUnknownToken
	}
	return l.permitDigest(tokenAddr, t, owner, spender, value, deadline, t.nonce(owner)), nil
}

func (l *Ledger) permitDigest(tokenAddr common.Address, t *token, owner, spender common.Address, value, deadline, nonce *big.Int) common.Hash {
	domain := make([]byte, 0, 5*32)
	domain = append(domain, erc20DomainTypehash.Bytes()...)
	domain = append(domain, crypto.Keccak256([]byte(t.name))...)
	domain = append(domain, crypto.Keccak256([]byte("1"))...)
	domain = append(domain, word(l.chainID)...)
	domain = append(domain, addrWord(tokenAddr)...)

	msg := make([]byte, 0, 6*32)
	msg = append(msg, permitTypehash.Bytes()...)
	msg = append(msg, addrWord(owner)...)
	msg = append(msg, addrWord(spender)...)
	msg = append(msg, word(value)...)
	msg = append(msg, word(deadline)...)
	msg = append(msg, word(nonce)...)

	raw := []byte{0x19, 0x01}
	raw = append(raw, crypto.Keccak256(domain)...)
	raw = append(raw, crypto.Keccak256(msg)...)
	return crypto.Keccak256Hash(raw)
}

func (t *token) balance(addr common.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (t *token) allowance(owner, spender common.Address) *big.Int {
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return new(big.Int)
}

func (t *token) setAllowance(owner, spender common.Address, amount *big.Int) {
	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)
}

func (t *token) nonce(owner common.Address) *big.Int {
	if n, ok := t.nonces[owner]; ok {
		return n
	}
	return new(big.Int)
}

func recoverSigner(digest common.Hash, v uint8, r, s [32]byte) (common.Address, error) {
	sig := make([]byte, 65)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	if v >= 27 {
		v -= 27
	}
	sig[64] = v
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func word(x *big.Int) []byte {
	v := new(uint256.Int)
	if x != nil {
		v.SetFromBig(x)
	}
	b := v.Bytes32()
	return b[:]
}

func addrWord(a common.Address) []byte {
	var b [32]byte
	copy(b[12:], a.Bytes())
	return b[:]
}
