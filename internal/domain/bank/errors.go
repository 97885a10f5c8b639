package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinels for the engine's error taxonomy. The typed errors below match
// them through errors.Is so callers can branch on the kind without caring
// about the concrete type.
var (
	ErrUnknownVariant = errors.New("unknown bank variant")
	ErrValidation     = errors.New("credential validation failed")
	ErrNetwork        = errors.New("bank service unreachable")
	ErrParse          = errors.New("unexpected bank response")
	ErrAuth           = errors.New("bank rejected credentials")
	ErrConflict       = errors.New("ledger uniqueness conflict")
)

// ValidationError lists the credential fields that were missing or empty.
type ValidationError struct {
	Variant Variant
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing credential field(s): %s", e.Variant, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NetworkError covers transport failures: unreachable endpoint, timeout,
// or a non-2xx HTTP status.
type NetworkError struct {
	Variant    Variant
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: bank service returned HTTP %d", e.Variant, e.StatusCode)
	case e.Timeout():
		return fmt.Sprintf("%s: bank service timed out", e.Variant)
	default:
		return fmt.Sprintf("%s: bank service unreachable: %v", e.Variant, e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Timeout reports whether the call was cut off by its deadline.
func (e *NetworkError) Timeout() bool {
	if e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ParseError means the response body did not have the shape the variant
// expects. No transactions are ever returned alongside it.
type ParseError struct {
	Variant Variant
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response: %s: %v", e.Variant, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.Variant, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// AuthError is a bank-reported authentication or authorization failure
// carried inside an otherwise well-formed response.
type AuthError struct {
	Variant Variant
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: authentication rejected (code %s)", e.Variant, e.Code)
	}
	return fmt.Sprintf("%s: authentication rejected (code %s): %s", e.Variant, e.Code, e.Message)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// ConflictError reports that (account, reference) is already in the ledger.
// The reconciler absorbs it; it never reaches a sync report.
type ConflictError struct {
	AccountID string
	Reference string
	Err       error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction %q already stored for account %s", e.Reference, e.AccountID)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Kind returns a short stable label for err, used in metrics and run logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
