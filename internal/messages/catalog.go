// Package messages renders user-facing prompts from logical keys.
// The dialog engine treats rendered Content as an opaque payload.
package messages

import "fmt"

// Key identifies a logical message template.
type Key string

const (
	KeyEnterUsername   Key = "enter_username"
	KeyEnterPassword   Key = "enter_password"
	KeyExitConfirm     Key = "exit_confirm"
	KeyMainMenu        Key = "main_menu"
	KeyNotifyOffer     Key = "notify_offer"
	KeyNotifyInvalid   Key = "notify_invalid"
	KeyAgreementInfo   Key = "agreement_info"
	KeyAgreementOffer  Key = "agreement_offer"
	KeyAgreementChoose Key = "agreement_choose"
	KeyAmountScreen    Key = "amount_screen"
	KeyAmountTooHigh   Key = "amount_too_high"
	KeyAmountTooLow    Key = "amount_too_low"
	KeyAmountNotSet    Key = "amount_not_set"
	KeyDebtsOverdue    Key = "debts_overdue"
	KeyHistoryPeriod   Key = "history_period"
	KeyPaymentReminder Key = "payment_reminder"
	KeyFailure         Key = "failure"

	KeyStart          Key = "start"
	KeyUnknown        Key = "unknown"
	KeyNotLinked      Key = "not_linked"
	KeyRateLimited    Key = "rate_limited"
	KeyLoginOK        Key = "login_ok"
	KeyLoginFailed    Key = "login_failed"
	KeyExitDone       Key = "exit_done"
	KeyNotifySaved    Key = "notify_saved"
	KeySwitchDone     Key = "switch_done"
	KeyPromiseDone    Key = "promise_done"
	KeyPromiseFailed  Key = "promise_failed"
	KeyPaymentCreated Key = "payment_created"
	KeyBalance        Key = "balance"
	KeyHistoryHeader  Key = "history_header"
	KeyHistoryEmpty   Key = "history_empty"
)

// Button is a single inline choice attached to a prompt.
type Button struct {
	Label string
	Data  string
}

// Content is a rendered prompt: text plus optional button rows.
type Content struct {
	Text    string
	Buttons [][]Button
}

// Empty reports whether the content carries nothing to display.
func (c Content) Empty() bool {
	return c.Text == "" && len(c.Buttons) == 0
}

// Row is a convenience constructor for a single button row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Catalog renders a prompt from a logical key plus parameters.
type Catalog interface {
	Render(key Key, args ...any) Content
}

type template struct {
	text    string
	buttons [][]Button
}

// StaticCatalog is a map-backed Catalog with fmt-style parameter substitution.
type StaticCatalog struct {
	templates map[Key]template
}

// NewCatalog returns the default English catalog.
func NewCatalog() *StaticCatalog {
	cancelRow := Row(Button{Label: "❌ Cancel", Data: "cancel"})
	return &StaticCatalog{templates: map[Key]template{
		KeyEnterUsername: {text: "Please enter username:"},
		KeyEnterPassword: {text: "Now enter password:"},
		KeyExitConfirm: {
			text:    "Log out and forget your credentials?",
			buttons: [][]Button{Row(Button{Label: "Yes", Data: "yes"}), cancelRow},
		},
		KeyMainMenu:      {text: "Back to the main menu."},
		KeyNotifyOffer:   {text: "Payment notifications are currently %s."},
		KeyNotifyInvalid: {text: "That option is not available right now, pick one of the offered choices."},
		KeyAgreementInfo: {text: "Your agreement %s, balance %.2f. You have no other agreements to switch to."},
		KeyAgreementOffer: {
			text:    "Active agreement %s, balance %.2f. Switch to another one?",
			buttons: [][]Button{Row(Button{Label: "Choose another", Data: "choose"}), cancelRow},
		},
		KeyAgreementChoose: {text: "Pick the agreement to switch to:"},
		KeyAmountScreen: {
			text: "Amount: %d ₽",
			buttons: [][]Button{
				Row(Button{Label: "1", Data: "1"}, Button{Label: "2", Data: "2"}, Button{Label: "3", Data: "3"}),
				Row(Button{Label: "4", Data: "4"}, Button{Label: "5", Data: "5"}, Button{Label: "6", Data: "6"}),
				Row(Button{Label: "7", Data: "7"}, Button{Label: "8", Data: "8"}, Button{Label: "9", Data: "9"}),
				Row(Button{Label: "⌫", Data: "erase"}, Button{Label: "0", Data: "0"}, Button{Label: "C", Data: "clear"}),
				Row(Button{Label: "OK", Data: "ok"}, Button{Label: "❌ Cancel", Data: "cancel"}),
			},
		},
		KeyAmountTooHigh:   {text: "Amount cannot be greater than %d."},
		KeyAmountTooLow:    {text: "Amount cannot be less than %d."},
		KeyAmountNotSet:    {text: "Amount is not set yet, enter a value first."},
		KeyDebtsOverdue:    {text: "Recommended payment %d exceeds the promise limit %d: overdue debts must be paid directly."},
		KeyHistoryPeriod:   {text: "Show payments for which period?", buttons: [][]Button{Row(Button{Label: "Week", Data: "week"}, Button{Label: "Month", Data: "month"}, Button{Label: "Year", Data: "year"}), cancelRow}},
		KeyPaymentReminder: {text: "Reminder: your balance on agreement %s is %.2f. Top it up to avoid suspension."},
		KeyFailure:         {text: "Something went wrong, please start over from the main menu."},

		KeyStart:          {text: "Hello! I am your provider's assistant. Use /login to link your account."},
		KeyUnknown:        {text: "I did not understand that. Use the menu commands."},
		KeyNotLinked:      {text: "You are not logged in yet, use /login first."},
		KeyRateLimited:    {text: "Too fast, give me a second."},
		KeyLoginOK:        {text: "Welcome, %s! Your account is linked."},
		KeyLoginFailed:    {text: "Login or password is wrong, try /login again."},
		KeyExitDone:       {text: "You are logged out, credentials forgotten."},
		KeyNotifySaved:    {text: "Notification settings saved."},
		KeySwitchDone:     {text: "Switched to agreement %s."},
		KeyPromiseDone:    {text: "Promise payment of %d ₽ accepted."},
		KeyPromiseFailed:  {text: "The billing system declined the promise payment."},
		KeyPaymentCreated: {text: "Payment of %d ₽ prepared, follow the link to finish: %s"},
		KeyBalance:        {text: "Balance: %.2f ₽\nCredit limit: %.2f ₽\nRecommended payment: %d ₽"},
		KeyHistoryHeader:  {text: "Payments since %s:"},
		KeyHistoryEmpty:   {text: "No payments in the selected period."},
	}}
}

// Render substitutes args into the template for key. Unknown keys render
// an empty Content so a missing template never panics mid-dialog.
func (c *StaticCatalog) Render(key Key, args ...any) Content {
	tpl, ok := c.templates[key]
	if !ok {
		return Content{}
	}
	text := tpl.text
	if len(args) > 0 {
		text = fmt.Sprintf(tpl.text, args...)
	}
	buttons := make([][]Button, len(tpl.buttons))
	copy(buttons, tpl.buttons)
	return Content{Text: text, Buttons: buttons}
}
