package ledger

import (
	"errors"
	"fmt"
)

// Code categorizes ledger rejections and faults.
//
// Codes are stable: callers (the CLI, a bot command layer) key their
// user-facing messages off them and must never need to parse Message.
type Code string

const (
	// CodeNotFound indicates an unknown account or transaction.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists indicates a duplicate account registration.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeInvalidAmount indicates a zero, negative or over-cap amount.
	CodeInvalidAmount Code = "INVALID_AMOUNT"

	// CodeInsufficientBalance indicates the sender cannot cover the amount.
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// CodeNonceMismatch indicates the submitted nonce is not the sender's
	// next expected nonce. Too low is a replay attempt, too high is
	// out-of-order; both are rejected, nothing is queued.
	CodeNonceMismatch Code = "NONCE_MISMATCH"

	// CodeInvalidSignature indicates the signature does not verify against
	// the sender's registered public key.
	CodeInvalidSignature Code = "INVALID_SIGNATURE"

	// CodeConflict indicates a concurrent duplicate append (same id).
	CodeConflict Code = "CONFLICT"

	// CodePolicyViolation indicates the transaction breaks an injected
	// governance rule: a mint not sent by the authority, a burn not
	// addressed to the sink, or a privileged account used as an ordinary
	// counterparty.
	CodePolicyViolation Code = "POLICY_VIOLATION"

	// CodeStorageFailure wraps an error from the durability layer. The
	// caller cannot assume the operation did or did not commit and must
	// re-query ledger state before resubmitting.
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// Error is a ledger rejection or fault with a stable code and context.
type Error struct {
	Code    Code
	Message string
	Account string // affected account, when known
	TxID    string // affected transaction, when known
	Err     error  // underlying cause, for STORAGE_FAILURE
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Account != "" && e.TxID != "":
		return fmt.Sprintf("%s: %s (account=%s, tx=%s)", e.Code, e.Message, e.Account, e.TxID)
	case e.Account != "":
		return fmt.Sprintf("%s: %s (account=%s)", e.Code, e.Message, e.Account)
	case e.TxID != "":
		return fmt.Sprintf("%s: %s (tx=%s)", e.Code, e.Message, e.TxID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the ledger code from err, unwrapping as needed.
// Returns the empty code for non-ledger errors.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsCode reports whether err carries the given ledger code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// ErrNotFound builds a NOT_FOUND error for an account.
func ErrNotFound(account string) *Error {
	return &Error{Code: CodeNotFound, Message: "account not registered", Account: account}
}

// ErrTxNotFound builds a NOT_FOUND error for a transaction.
func ErrTxNotFound(txID string) *Error {
	return &Error{Code: CodeNotFound, Message: "transaction not found", TxID: txID}
}

// ErrAlreadyExists builds an ALREADY_EXISTS error for an account.
func ErrAlreadyExists(account string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: "account already registered", Account: account}
}

// ErrInvalidAmount builds an INVALID_AMOUNT error.
func ErrInvalidAmount(amount int64) *Error {
	return &Error{Code: CodeInvalidAmount, Message: fmt.Sprintf("amount must be a positive integer, got %d", amount)}
}

// ErrAmountOverCap builds an INVALID_AMOUNT error for a policy cap breach.
func ErrAmountOverCap(amount, cap int64) *Error {
	return &Error{Code: CodeInvalidAmount, Message: fmt.Sprintf("amount %d exceeds policy cap %d", amount, cap)}
}

// ErrInsufficientBalance builds an INSUFFICIENT_BALANCE error.
func ErrInsufficientBalance(account string, have, need int64) *Error {
	return &Error{
		Code:    CodeInsufficientBalance,
		Message: fmt.Sprintf("balance %d, need %d", have, need),
		Account: account,
	}
}

// ErrNonceMismatch builds a NONCE_MISMATCH error.
func ErrNonceMismatch(account string, got, want int64) *Error {
	return &Error{
		Code:    CodeNonceMismatch,
		Message: fmt.Sprintf("nonce %d, expected %d", got, want),
		Account: account,
	}
}

// ErrInvalidSignature builds an INVALID_SIGNATURE error.
func ErrInvalidSignature(account string) *Error {
	return &Error{Code: CodeInvalidSignature, Message: "signature does not verify against registered key", Account: account}
}

// ErrPolicyViolation builds a POLICY_VIOLATION error.
func ErrPolicyViolation(account, reason string) *Error {
	return &Error{Code: CodePolicyViolation, Message: reason, Account: account}
}

// ErrConflict builds a CONFLICT error for a duplicate append.
func ErrConflict(txID string) *Error {
	return &Error{Code: CodeConflict, Message: "transaction id already in ledger", TxID: txID}
}

// ErrStorage wraps a durability-layer error.
func ErrStorage(err error) *Error {
	return &Error{Code: CodeStorageFailure, Message: "storage layer failure", Err: err}
}
