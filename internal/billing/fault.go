package billing

import (
	"errors"
	"fmt"
)

// FaultCode classifies expected business outcomes returned by the billing API.
type FaultCode string

const (
	// FaultInvalidCredentials means the login/password pair was rejected.
	FaultInvalidCredentials FaultCode = "invalid_credentials"
	// FaultDebtsOverdue means the account has overdue debts blocking the operation.
	FaultDebtsOverdue FaultCode = "debts_overdue"
	// FaultSessionExpired means the manager session cookie is no longer valid.
	FaultSessionExpired FaultCode = "session_expired"
	// FaultNotFound means the requested entity does not exist upstream.
	FaultNotFound FaultCode = "not_found"
)

// Fault is an expected business-level failure. Transformers interpret faults
// into user-facing outcomes; they are never treated as consistency errors.
type Fault struct {
	Code    FaultCode
	Message string
}

func (f *Fault) Error() string {
	if f.Message == "" {
		return fmt.Sprintf("billing fault: %s", f.Code)
	}
	return fmt.Sprintf("billing fault: %s: %s", f.Code, f.Message)
}

// IsFault reports whether err wraps a Fault with the given code.
func IsFault(err error, code FaultCode) bool {
	var f *Fault
	return errors.As(err, &f) && f.Code == code
}
