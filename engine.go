package settlement

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Engine validates settlement requests and delegates the actual value
// transfer to the Permit Authority. It holds no funds and keeps no durable
// state between calls; the only mutable state is the settlement lock.
type Engine struct {
	authority PermitAuthority
	permitter TokenPermitter
	recorder  func(SettlementRecorded)
	now       func() time.Time
	mu        sync.Mutex
}

// reentrancyKey marks the context of an in-flight settlement. The Authority
// receives the marked context, so any callback it makes into the same
// engine carries the marker; an independent settlement from another caller
// does not, and simply waits its turn on the lock.
type reentrancyKey struct{}

func (e *Engine) inFlight(ctx context.Context) bool {
	owner, ok := ctx.Value(reentrancyKey{}).(*Engine)
	return ok && owner == e
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder registers a hook invoked exactly once per successful
// settlement, with the emitted SettlementRecorded event.
func WithRecorder(fn func(SettlementRecorded)) Option {
	return func(e *Engine) { e.recorder = fn }
}

// WithTokenPermitter wires the collaborator used by SettleWithSelfPermit to
// submit token self-permits. Without it every self-permit is skipped.
func WithTokenPermitter(p TokenPermitter) Option {
	return func(e *Engine) { e.permitter = p }
}

// WithClock overrides the time source used for validity-window checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine bound to a Permit Authority. The authority
// must be non-nil and report a non-zero address.
func NewEngine(authority PermitAuthority, opts ...Option) (*Engine, error) {
	if authority == nil || authority.Address() == (common.Address{}) {
		return nil, ErrInvalidAuthority
	}
	e := &Engine{
		authority: authority,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Verify runs the engine's local validation against a request and returns
// the witness digest that would be bound into the delegated transfer. It
// performs no state change and does not consult the Permit Authority, so a
// passing Verify does not imply the signature or nonce are good.
func (e *Engine) Verify(req Request) (common.Hash, error) {
	if req.Owner == (common.Address{}) {
		return common.Hash{}, ErrInvalidOwner
	}
	if req.Witness.To == (common.Address{}) {
		return common.Hash{}, ErrInvalidDestination
	}
	if bigOrZero(req.Amount).Cmp(bigOrZero(req.Permit.Permitted.Amount)) > 0 {
		return common.Hash{}, ErrAmountExceedsPermitted
	}
	now := e.unixNow()
	if now.Cmp(bigOrZero(req.Witness.ValidAfter)) < 0 {
		return common.Hash{}, ErrPaymentTooEarly
	}
	if now.Cmp(bigOrZero(req.Witness.ValidBefore)) > 0 {
		return common.Hash{}, ErrPaymentExpired
	}
	return WitnessHash(req.Witness), nil
}

// Settle executes one settlement: validate, delegate the transfer to the
// Permit Authority, record the event. All-or-nothing: any failed step
// leaves no partial effect. A callback from the Authority into the engine
// mid-settlement fails immediately with ErrReentrancy; unrelated concurrent
// settlements are serialized, never rejected.
func (e *Engine) Settle(ctx context.Context, req Request) (*Receipt, error) {
	if e.inFlight(ctx) {
		return nil, ErrReentrancy
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.settleLocked(context.WithValue(ctx, reentrancyKey{}, e), req)
}

// SettleWithSelfPermit first attempts the token's self-service permit to
// grant the Permit Authority an allowance, then settles unconditionally.
// The pre-step's outcome is informational: a skipped self-permit is not a
// failure, because a pre-existing allowance may already satisfy the
// Authority. If neither exists, the delegated transfer fails and that
// failure propagates normally.
func (e *Engine) SettleWithSelfPermit(ctx context.Context, selfPermit SelfPermit, req Request) (SelfPermitOutcome, *Receipt, error) {
	if e.inFlight(ctx) {
		return SelfPermitSkipped, nil, ErrReentrancy
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = context.WithValue(ctx, reentrancyKey{}, e)
	outcome := e.applySelfPermit(ctx, selfPermit, req)
	receipt, err := e.settleLocked(ctx, req)
	return outcome, receipt, err
}

// settleLocked runs steps 2-9; the caller holds the lock and has marked ctx.
func (e *Engine) settleLocked(ctx context.Context, req Request) (*Receipt, error) {
	digest, err := e.Verify(req)
	if err != nil {
		return nil, err
	}

	transfer := TransferDetails{
		To:              req.Witness.To,
		RequestedAmount: bigOrZero(req.Amount),
	}

	// Authority failures propagate unmodified; the engine never
	// reinterprets or suppresses them.
	if err := e.authority.PermitWitnessTransferFrom(
		ctx, req.Permit, transfer, req.Owner, digest, WitnessTypeString, req.Signature,
	); err != nil {
		return nil, err
	}

	event := SettlementRecorded{
		Owner:  req.Owner,
		To:     req.Witness.To,
		Amount: transfer.RequestedAmount,
		Token:  req.Permit.Permitted.Token,
	}
	if e.recorder != nil {
		e.recorder(event)
	}

	return &Receipt{
		Owner:         event.Owner,
		To:            event.To,
		Amount:        event.Amount,
		Token:         event.Token,
		WitnessDigest: digest,
	}, nil
}

// applySelfPermit submits the self-permit and folds every failure into
// SelfPermitSkipped. The allowance is granted to the Authority, never to
// the engine itself.
func (e *Engine) applySelfPermit(ctx context.Context, sp SelfPermit, req Request) SelfPermitOutcome {
	if e.permitter == nil {
		return SelfPermitSkipped
	}
	err := e.permitter.Permit(
		ctx,
		req.Permit.Permitted.Token,
		req.Owner,
		e.authority.Address(),
		bigOrZero(sp.Value),
		bigOrZero(sp.Deadline),
		sp.V, sp.R, sp.S,
	)
	if err != nil {
		return SelfPermitSkipped
	}
	return SelfPermitApplied
}

func (e *Engine) unixNow() *big.Int {
	return big.NewInt(e.now().Unix())
}
