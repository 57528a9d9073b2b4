package bot

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/lanbilling/lanbot/core/logger"
	"github.com/lanbilling/lanbot/core/telegram/callbacks"
	tghelpers "github.com/lanbilling/lanbot/core/telegram/helpers"
	"github.com/lanbilling/lanbot/internal/billing"
	"github.com/lanbilling/lanbot/internal/dialog"
	"github.com/lanbilling/lanbot/internal/messages"
	"github.com/lanbilling/lanbot/internal/storage"
	"log/slog"
)

// dialogEngine adapts the Processor to the router's Engine interface.
type dialogEngine struct {
	app *App
}

func (e *dialogEngine) Contains(userID int64) bool {
	return e.app.proc.Contains(userID)
}

// Handle feeds one update into the user's in-progress dialog. Any engine
// error ends the conversation with a generic failure screen; the session is
// already cleared by the Processor at that point.
func (e *dialogEngine) Handle(c tele.Context) error {
	a := e.app
	ctx := tghelpers.BuildContext(c)
	token := callbacks.Token(c)

	proj, err := a.proc.ProcessOption(ctx, c.Sender().ID, token)
	if err != nil {
		logger.DLG.Warn("dialog aborted",
			slog.String("event", "dialog.abort"),
			slog.Int64("user_id", c.Sender().ID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return a.send(c, a.catalog.Render(messages.KeyFailure))
	}
	return a.completeProjection(ctx, c, proj)
}

// completeProjection renders a projection: finished dialogs run their
// business action, everything else just shows the next prompt.
func (a *App) completeProjection(ctx context.Context, c tele.Context, proj dialog.Projection) error {
	if proj.Finished {
		return a.finishDialog(ctx, c, proj)
	}
	return a.send(c, proj.Prompt)
}

// finishDialog executes the action behind a completed dialog.
func (a *App) finishDialog(ctx context.Context, c tele.Context, proj dialog.Projection) error {
	userID := c.Sender().ID
	switch opts := proj.Options.(type) {
	case dialog.LoginOptions:
		return a.finishLogin(ctx, c, opts)

	case dialog.ExitOptions:
		if err := a.users.Delete(ctx, userID); err != nil {
			return a.reportFailure(ctx, c, proj.Command.Name, err)
		}
		return a.send(c, a.catalog.Render(messages.KeyExitDone))

	case dialog.NotifyOptions:
		if err := a.users.SetNotifications(ctx, userID, opts.Enabled, opts.AllAgreements); err != nil {
			return a.reportFailure(ctx, c, proj.Command.Name, err)
		}
		return a.send(c, a.catalog.Render(messages.KeyNotifySaved))

	case dialog.SwitchOptions:
		if err := a.users.SetAgreement(ctx, userID, opts.AgreementID); err != nil {
			return a.reportFailure(ctx, c, proj.Command.Name, err)
		}
		return a.send(c, a.catalog.Render(messages.KeySwitchDone, opts.Number))

	case dialog.PromiseOptions:
		return a.finishPromise(ctx, c, opts)

	case dialog.PaymentOptions:
		return a.finishPayment(ctx, c, opts)

	case dialog.HistoryOptions:
		return a.finishHistory(ctx, c, opts)
	}
	return a.reportFailure(ctx, c, proj.Command.Name, dialog.ErrInvalidState)
}

func (a *App) finishLogin(ctx context.Context, c tele.Context, opts dialog.LoginOptions) error {
	login, err := a.billing.Authenticate(ctx, opts.Username, opts.Password)
	if billing.IsFault(err, billing.FaultInvalidCredentials) {
		return a.send(c, a.catalog.Render(messages.KeyLoginFailed))
	}
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandLogin, err)
	}

	agreements, err := a.billing.Agreements(ctx, login)
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandLogin, err)
	}
	var agreementID int64
	for _, agr := range agreements {
		if agr.Active {
			agreementID = agr.ID
			break
		}
	}

	if err := a.users.Upsert(ctx, storage.User{
		TelegramID:  c.Sender().ID,
		Login:       login,
		AgreementID: agreementID,
	}); err != nil {
		return a.reportFailure(ctx, c, dialog.CommandLogin, err)
	}
	return a.send(c, a.catalog.Render(messages.KeyLoginOK, login))
}

func (a *App) finishPromise(ctx context.Context, c tele.Context, opts dialog.PromiseOptions) error {
	user, err := a.users.GetByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandPromisePayment, err)
	}
	err = a.billing.SubmitPromisePayment(ctx, user.AgreementID, opts.Amount)
	if billing.IsFault(err, billing.FaultDebtsOverdue) {
		return a.send(c, a.catalog.Render(messages.KeyPromiseFailed))
	}
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandPromisePayment, err)
	}
	return a.send(c, a.catalog.Render(messages.KeyPromiseDone, opts.Amount))
}

func (a *App) finishPayment(ctx context.Context, c tele.Context, opts dialog.PaymentOptions) error {
	user, err := a.users.GetByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandYookassaPayment, err)
	}
	link := a.paymentLink(user.Login, opts.Amount)
	return a.send(c, a.catalog.Render(messages.KeyPaymentCreated, opts.Amount, link))
}

func (a *App) finishHistory(ctx context.Context, c tele.Context, opts dialog.HistoryOptions) error {
	user, err := a.users.GetByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandPaymentHistory, err)
	}
	payments, err := a.billing.Payments(ctx, user.AgreementID, opts.Since)
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandPaymentHistory, err)
	}
	return a.sendHistory(c, opts, payments)
}

// reportFailure logs an unexpected post-dialog error and shows the generic
// failure screen. Business faults never land here.
func (a *App) reportFailure(ctx context.Context, c tele.Context, cmd dialog.CommandName, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	logger.Error(ctx, "dialog", "dialog.finish",
		slog.String("command", string(cmd)),
		slog.Int64("user_id", c.Sender().ID),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	return a.send(c, a.catalog.Render(messages.KeyFailure))
}
