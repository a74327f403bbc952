package settlement

import "fmt"

// Error codes for local validation failures. Delegated failures (signature,
// nonce, allowance, balance) originate in the Permit Authority and are
// propagated unmodified; they never use these codes.
const (
	ErrCodeInvalidOwner           = "invalid_owner"
	ErrCodeInvalidDestination     = "invalid_destination"
	ErrCodeAmountExceedsPermitted = "amount_exceeds_permitted"
	ErrCodePaymentTooEarly        = "payment_too_early"
	ErrCodePaymentExpired         = "payment_expired"
	ErrCodeInvalidAuthority       = "invalid_authority_address"
	ErrCodeReentrancy             = "reentrant_call"
)

// SettlementError is a settlement-specific failure with a stable code.
type SettlementError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Singleton errors; compare with errors.Is.
var (
	ErrInvalidOwner           = &SettlementError{Code: ErrCodeInvalidOwner, Message: "owner must not be the zero address"}
	ErrInvalidDestination     = &SettlementError{Code: ErrCodeInvalidDestination, Message: "witness destination must not be the zero address"}
	ErrAmountExceedsPermitted = &SettlementError{Code: ErrCodeAmountExceedsPermitted, Message: "requested amount exceeds permitted amount"}
	ErrPaymentTooEarly        = &SettlementError{Code: ErrCodePaymentTooEarly, Message: "settlement attempted before validAfter"}
	ErrPaymentExpired         = &SettlementError{Code: ErrCodePaymentExpired, Message: "settlement attempted after validBefore"}
	ErrInvalidAuthority       = &SettlementError{Code: ErrCodeInvalidAuthority, Message: "permit authority must have a non-zero address"}
	ErrReentrancy             = &SettlementError{Code: ErrCodeReentrancy, Message: "settlement already in progress"}
)
