package dialog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lanbilling/lanbot/internal/billing"
	"github.com/lanbilling/lanbot/internal/messages"
)

type fakeBilling struct {
	agreements  []billing.Agreement
	recommended int64
	err         error
	calls       int
}

func (f *fakeBilling) Authenticate(_ context.Context, login, _ string) (string, error) {
	f.calls++
	return login, f.err
}

func (f *fakeBilling) Agreements(_ context.Context, _ string) ([]billing.Agreement, error) {
	f.calls++
	return f.agreements, f.err
}

func (f *fakeBilling) Account(_ context.Context, _ int64) (billing.Account, error) {
	f.calls++
	return billing.Account{}, f.err
}

func (f *fakeBilling) RecommendedPayment(_ context.Context, _ int64) (int64, error) {
	f.calls++
	return f.recommended, f.err
}

func (f *fakeBilling) SubmitPromisePayment(_ context.Context, _, _ int64) error {
	f.calls++
	return f.err
}

func (f *fakeBilling) Payments(_ context.Context, _ int64, _ time.Time) ([]billing.Payment, error) {
	f.calls++
	return nil, f.err
}

func newTestProcessor(t *testing.T, client billing.Client) *Processor {
	t.Helper()
	catalog := messages.NewCatalog()
	calc := NewCalculator(nil)
	p, err := NewProcessor(catalog, []Transformer{
		NewLoginTransformer(catalog),
		NewExitTransformer(catalog),
		NewNotifyTransformer(catalog),
		NewSwitchTransformer(catalog, client),
		NewPromiseTransformer(catalog, client, calc, 1500),
		NewPaymentTransformer(catalog, client, calc, 50000),
		NewHistoryTransformer(catalog),
	})
	require.NoError(t, err)
	return p
}

func mustCommand(t *testing.T, name CommandName) Command {
	t.Helper()
	cmd, ok := ByName(name)
	require.True(t, ok)
	return cmd
}

func TestLoginDialogCollectsCredentials(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	ctx := context.Background()
	user := User{TelegramID: 7}

	proj, err := p.StartDialog(ctx, "/login", user, mustCommand(t, CommandLogin))
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	require.Equal(t, "Please enter username:", proj.Prompt.Text)
	require.True(t, p.Contains(7))

	proj, err = p.ProcessOption(ctx, 7, "alice")
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	require.Equal(t, "Now enter password:", proj.Prompt.Text)

	proj, err = p.ProcessOption(ctx, 7, "secret")
	require.NoError(t, err)
	require.True(t, proj.Finished)
	require.Equal(t, LoginOptions{Username: "alice", Password: "secret"}, proj.Options)
	require.False(t, p.Contains(7))
}

func TestLoginBlankUsernameRetriesSameStep(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	ctx := context.Background()

	_, err := p.StartDialog(ctx, "/login", User{TelegramID: 7}, mustCommand(t, CommandLogin))
	require.NoError(t, err)

	proj, err := p.ProcessOption(ctx, 7, "   ")
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	require.Equal(t, "Please enter username:", proj.Prompt.Text)
}

func TestCancelShortCircuitsWithoutTransformer(t *testing.T) {
	client := &fakeBilling{}
	p := newTestProcessor(t, client)
	ctx := context.Background()

	proj, err := p.StartDialog(ctx, "/history", User{TelegramID: 7}, mustCommand(t, CommandPaymentHistory))
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	before := client.calls

	proj, err = p.ProcessOption(ctx, 7, "❌ Cancel")
	require.NoError(t, err)
	require.True(t, proj.Cancelled)
	require.Equal(t, "Back to the main menu.", proj.Prompt.Text)
	require.False(t, p.Contains(7))
	require.Equal(t, before, client.calls, "cancel must not reach billing")
}

func TestProcessOptionWithoutSession(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	_, err := p.ProcessOption(context.Background(), 404, "anything")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestStartDialogRejectsNonDialogCommand(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	_, err := p.StartDialog(context.Background(), "/balance", User{TelegramID: 7}, mustCommand(t, CommandBalance))
	require.ErrorIs(t, err, ErrNotDialog)
}

func TestExitRequiresExplicitYes(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	ctx := context.Background()

	_, err := p.StartDialog(ctx, "/exit", User{TelegramID: 7}, mustCommand(t, CommandExit))
	require.NoError(t, err)

	_, err = p.ProcessOption(ctx, 7, "maybe")
	require.ErrorIs(t, err, ErrUnexpectedInput)
	require.False(t, p.Contains(7), "failed dialog must clear the session")

	_, err = p.StartDialog(ctx, "/exit", User{TelegramID: 7}, mustCommand(t, CommandExit))
	require.NoError(t, err)
	proj, err := p.ProcessOption(ctx, 7, "Yes")
	require.NoError(t, err)
	require.True(t, proj.Finished)
	require.Equal(t, ExitOptions{}, proj.Options)
}

func TestNotificationsInvalidChoiceRetries(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	ctx := context.Background()
	user := User{TelegramID: 7, NotifyEnabled: false, AgreementCount: 1}

	proj, err := p.StartDialog(ctx, "/notifications", user, mustCommand(t, CommandNotifications))
	require.NoError(t, err)
	require.Contains(t, proj.Prompt.Text, "disabled")

	// "disable" is not offered while already disabled.
	proj, err = p.ProcessOption(ctx, 7, "disable")
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	require.Contains(t, proj.Prompt.Text, "not available")
	require.True(t, p.Contains(7))

	proj, err = p.ProcessOption(ctx, 7, "enable")
	require.NoError(t, err)
	require.True(t, proj.Finished)
	require.Equal(t, NotifyOptions{Enabled: true}, proj.Options)
}

func TestNotificationsAllRequiresMultipleAgreements(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	ctx := context.Background()
	user := User{TelegramID: 7, NotifyEnabled: false, AgreementCount: 3}

	_, err := p.StartDialog(ctx, "/notifications", user, mustCommand(t, CommandNotifications))
	require.NoError(t, err)

	proj, err := p.ProcessOption(ctx, 7, "all")
	require.NoError(t, err)
	require.True(t, proj.Finished)
	require.Equal(t, NotifyOptions{Enabled: true, AllAgreements: true}, proj.Options)
}

func TestAgreementSwitchSingleAgreementCancelsImmediately(t *testing.T) {
	client := &fakeBilling{agreements: []billing.Agreement{
		{ID: 10, Number: "A-10", Balance: 12.5, Active: true},
	}}
	p := newTestProcessor(t, client)
	user := User{TelegramID: 7, Login: "alice", AgreementID: 10}

	proj, err := p.StartDialog(context.Background(), "/agreement", user, mustCommand(t, CommandSwitchAgreement))
	require.NoError(t, err)
	require.True(t, proj.Cancelled)
	require.Contains(t, proj.Prompt.Text, "A-10")
	require.False(t, p.Contains(7))
}

func TestAgreementSwitchFullFlow(t *testing.T) {
	client := &fakeBilling{agreements: []billing.Agreement{
		{ID: 10, Number: "A-10", Balance: 12.5, Active: true},
		{ID: 11, Number: "A-11", Balance: -3, Active: true},
		{ID: 12, Number: "A-12", Active: false},
	}}
	p := newTestProcessor(t, client)
	ctx := context.Background()
	user := User{TelegramID: 7, Login: "alice", AgreementID: 10}

	proj, err := p.StartDialog(ctx, "/agreement", user, mustCommand(t, CommandSwitchAgreement))
	require.NoError(t, err)
	require.True(t, proj.Continuing())

	proj, err = p.ProcessOption(ctx, 7, "choose")
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	// Closed agreement A-12 must not be offered.
	var offered []string
	for _, row := range proj.Prompt.Buttons {
		for _, b := range row {
			offered = append(offered, b.Label)
		}
	}
	require.Contains(t, strings.Join(offered, " "), "A-11")
	require.NotContains(t, strings.Join(offered, " "), "A-12")

	proj, err = p.ProcessOption(ctx, 7, "11")
	require.NoError(t, err)
	require.True(t, proj.Finished)
	require.Equal(t, SwitchOptions{AgreementID: 11, Number: "A-11"}, proj.Options)
}

func TestAgreementSwitchUnknownChoiceFallsBackToMenu(t *testing.T) {
	client := &fakeBilling{agreements: []billing.Agreement{
		{ID: 10, Number: "A-10", Active: true},
		{ID: 11, Number: "A-11", Active: true},
	}}
	p := newTestProcessor(t, client)
	ctx := context.Background()
	user := User{TelegramID: 7, Login: "alice", AgreementID: 10}

	_, err := p.StartDialog(ctx, "/agreement", user, mustCommand(t, CommandSwitchAgreement))
	require.NoError(t, err)
	_, err = p.ProcessOption(ctx, 7, "choose")
	require.NoError(t, err)

	proj, err := p.ProcessOption(ctx, 7, "999")
	require.NoError(t, err)
	require.True(t, proj.Cancelled)
	require.False(t, p.Contains(7))
}

func TestPromisePaymentHappyPath(t *testing.T) {
	client := &fakeBilling{recommended: 300}
	p := newTestProcessor(t, client)
	ctx := context.Background()
	user := User{TelegramID: 7, AgreementID: 10}

	proj, err := p.StartDialog(ctx, "/promise", user, mustCommand(t, CommandPromisePayment))
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	require.Contains(t, proj.Prompt.Text, "300")

	proj, err = p.ProcessOption(ctx, 7, "+100")
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	require.Contains(t, proj.Prompt.Text, "400")

	proj, err = p.ProcessOption(ctx, 7, "ok")
	require.NoError(t, err)
	require.True(t, proj.Finished)
	require.Equal(t, PromiseOptions{Amount: 400}, proj.Options)
	require.False(t, p.Contains(7))
}

func TestPromisePaymentOverdueDebtsCancels(t *testing.T) {
	client := &fakeBilling{recommended: 2000}
	p := newTestProcessor(t, client)
	user := User{TelegramID: 7, AgreementID: 10}

	proj, err := p.StartDialog(context.Background(), "/promise", user, mustCommand(t, CommandPromisePayment))
	require.NoError(t, err)
	require.True(t, proj.Cancelled)
	require.Contains(t, proj.Prompt.Text, "1500")
	require.False(t, p.Contains(7))
}

func TestPromiseCeilingRejectionKeepsAmount(t *testing.T) {
	client := &fakeBilling{recommended: 1450}
	p := newTestProcessor(t, client)
	ctx := context.Background()
	user := User{TelegramID: 7, AgreementID: 10}

	_, err := p.StartDialog(ctx, "/promise", user, mustCommand(t, CommandPromisePayment))
	require.NoError(t, err)

	proj, err := p.ProcessOption(ctx, 7, "+100")
	require.NoError(t, err)
	require.True(t, proj.Continuing())
	require.Contains(t, proj.Prompt.Text, "Amount cannot be greater than 1500.")
	require.Contains(t, proj.Prompt.Text, "1450", "rejected change keeps the previous amount")
}

func TestHistoryPeriodChoices(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	ctx := context.Background()
	user := User{TelegramID: 7}

	for _, period := range []string{"week", "month", "year"} {
		_, err := p.StartDialog(ctx, "/history", user, mustCommand(t, CommandPaymentHistory))
		require.NoError(t, err)

		proj, err := p.ProcessOption(ctx, 7, period)
		require.NoError(t, err)
		require.True(t, proj.Finished, period)
		opts, ok := proj.Options.(HistoryOptions)
		require.True(t, ok)
		require.True(t, opts.Since.Before(time.Now()))
	}
}

func TestHistoryTypedDate(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	ctx := context.Background()

	_, err := p.StartDialog(ctx, "/history", User{TelegramID: 7}, mustCommand(t, CommandPaymentHistory))
	require.NoError(t, err)

	proj, err := p.ProcessOption(ctx, 7, "2024-03-01")
	require.NoError(t, err)
	require.True(t, proj.Finished)
	opts, ok := proj.Options.(HistoryOptions)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), opts.Since)
}

func TestStartDialogReplacesExistingSession(t *testing.T) {
	p := newTestProcessor(t, &fakeBilling{})
	ctx := context.Background()
	user := User{TelegramID: 7}

	_, err := p.StartDialog(ctx, "/login", user, mustCommand(t, CommandLogin))
	require.NoError(t, err)
	_, err = p.StartDialog(ctx, "/history", user, mustCommand(t, CommandPaymentHistory))
	require.NoError(t, err)

	proj, err := p.ProcessOption(ctx, 7, "week")
	require.NoError(t, err)
	require.True(t, proj.Finished)
	require.IsType(t, HistoryOptions{}, proj.Options)
}

func TestNewProcessorRequiresAllTransformers(t *testing.T) {
	catalog := messages.NewCatalog()
	_, err := NewProcessor(catalog, []Transformer{NewLoginTransformer(catalog)})
	require.ErrorIs(t, err, ErrNoTransformer)
}
