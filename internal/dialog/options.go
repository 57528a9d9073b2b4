package dialog

import "time"

// Options is the typed accumulator a dialog fills in step by step. Each
// command owns a concrete options type; transformers assert only their own
// type and treat a mismatch as a consistency error, never a panic.
type Options interface {
	isOptions()
}

// LoginOptions carries the credentials collected by the login dialog.
type LoginOptions struct {
	Username string
	Password string
}

// ExitOptions is the empty payload of a confirmed exit.
type ExitOptions struct{}

// NotifyOptions is the notification preference chosen by the user.
type NotifyOptions struct {
	Enabled       bool
	AllAgreements bool
}

// SwitchOptions identifies the agreement the user switched to.
type SwitchOptions struct {
	AgreementID int64
	Number      string
}

// PromiseOptions carries the confirmed promise-payment amount.
type PromiseOptions struct {
	Amount int64
}

// PaymentOptions carries the confirmed online-payment amount.
type PaymentOptions struct {
	Amount int64
}

// HistoryOptions bounds the payment history query.
type HistoryOptions struct {
	Since time.Time
}

func (LoginOptions) isOptions()   {}
func (ExitOptions) isOptions()    {}
func (NotifyOptions) isOptions()  {}
func (SwitchOptions) isOptions()  {}
func (PromiseOptions) isOptions() {}
func (PaymentOptions) isOptions() {}
func (HistoryOptions) isOptions() {}
