// Package billing defines the contract with the upstream billing system and
// its HTTP implementation. All operations are context-bound and may return a
// *Fault for expected business outcomes.
package billing

import (
	"context"
	"time"
)

// Agreement is a customer's contract with the provider.
type Agreement struct {
	ID      int64
	Number  string
	Balance float64
	Active  bool
}

// Account aggregates the balance view shown on /balance.
type Account struct {
	Login       string
	Balance     float64
	Credit      float64
	Recommended int64
}

// Payment is a single entry in the payment history.
type Payment struct {
	Date   time.Time
	Amount float64
	Source string
}

// Client is the billing API consumed by the dialog transformers and the
// notification scheduler.
type Client interface {
	// Authenticate validates credentials and returns the account login on success.
	Authenticate(ctx context.Context, login, password string) (string, error)
	// Agreements lists all agreements for the account.
	Agreements(ctx context.Context, login string) ([]Agreement, error)
	// Account fetches the aggregated balance view for an agreement.
	Account(ctx context.Context, agreementID int64) (Account, error)
	// RecommendedPayment returns the suggested top-up amount for an agreement.
	RecommendedPayment(ctx context.Context, agreementID int64) (int64, error)
	// SubmitPromisePayment registers a promise payment for an agreement.
	SubmitPromisePayment(ctx context.Context, agreementID int64, amount int64) error
	// Payments returns the payment history for an agreement since the given time.
	Payments(ctx context.Context, agreementID int64, since time.Time) ([]Payment, error)
}
