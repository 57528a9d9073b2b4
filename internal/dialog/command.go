// Package dialog implements the conversational session engine: per-user
// dialog state, command-to-transformer dispatch, step sequencing with typed
// option accumulation, and the shared bounded numeric-entry calculator.
package dialog

import "strings"

// CommandName identifies a registered bot command.
type CommandName string

const (
	CommandLogin           CommandName = "login"
	CommandExit            CommandName = "exit"
	CommandNotifications   CommandName = "notifications"
	CommandSwitchAgreement CommandName = "switch_agreement"
	CommandPromisePayment  CommandName = "promise_payment"
	CommandYookassaPayment CommandName = "yookassa_payment"
	CommandPaymentHistory  CommandName = "payment_history"
	CommandBalance         CommandName = "balance"
)

// Command is a registered bot command: a canonical trigger token and a flag
// marking whether it runs a multi-step dialog or a single-shot handler.
type Command struct {
	Name    CommandName
	Trigger string
	Dialog  bool
}

var registered = []Command{
	{Name: CommandLogin, Trigger: "/login", Dialog: true},
	{Name: CommandExit, Trigger: "/exit", Dialog: true},
	{Name: CommandNotifications, Trigger: "/notifications", Dialog: true},
	{Name: CommandSwitchAgreement, Trigger: "/agreement", Dialog: true},
	{Name: CommandPromisePayment, Trigger: "/promise", Dialog: true},
	{Name: CommandYookassaPayment, Trigger: "/pay", Dialog: true},
	{Name: CommandPaymentHistory, Trigger: "/history", Dialog: true},
	{Name: CommandBalance, Trigger: "/balance", Dialog: false},
}

var (
	byTrigger = func() map[string]Command {
		m := make(map[string]Command, len(registered))
		for _, c := range registered {
			m[c.Trigger] = c
		}
		return m
	}()
	byName = func() map[CommandName]Command {
		m := make(map[CommandName]Command, len(registered))
		for _, c := range registered {
			m[c.Name] = c
		}
		return m
	}()
)

// Commands returns the closed set of registered commands.
func Commands() []Command {
	return append([]Command(nil), registered...)
}

// LookupTrigger resolves a raw trigger token to its Command.
func LookupTrigger(token string) (Command, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return Command{}, false
	}
	if !strings.HasPrefix(token, "/") {
		token = "/" + token
	}
	c, ok := byTrigger[token]
	return c, ok
}

// ByName resolves a command name to its Command.
func ByName(name CommandName) (Command, bool) {
	c, ok := byName[name]
	return c, ok
}

var cancelTokens = map[string]struct{}{
	"/cancel":  {},
	"cancel":   {},
	"❌ cancel": {},
}

// IsCancel reports whether the raw input is the distinguished cancel token
// recognized by the Processor before any transformer sees it.
func IsCancel(input string) bool {
	_, ok := cancelTokens[strings.ToLower(strings.TrimSpace(input))]
	return ok
}
