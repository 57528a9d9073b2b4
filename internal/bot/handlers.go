package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/lanbilling/lanbot/core/logger"
	"github.com/lanbilling/lanbot/core/telegram/format"
	tghelpers "github.com/lanbilling/lanbot/core/telegram/helpers"
	"github.com/lanbilling/lanbot/internal/billing"
	"github.com/lanbilling/lanbot/internal/dialog"
	"github.com/lanbilling/lanbot/internal/messages"
	"github.com/lanbilling/lanbot/internal/storage"
	"log/slog"
)

func (a *App) cmdStart(c tele.Context) error {
	return a.send(c, a.catalog.Render(messages.KeyStart))
}

// cmdBalance is the single-shot balance screen; no dialog session involved.
func (a *App) cmdBalance(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	user, err := a.users.GetByTelegramID(ctx, c.Sender().ID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return a.send(c, a.catalog.Render(messages.KeyNotLinked))
	}
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandBalance, err)
	}

	acct, err := a.billing.Account(ctx, user.AgreementID)
	if err != nil {
		return a.reportFailure(ctx, c, dialog.CommandBalance, err)
	}
	return a.send(c, a.catalog.Render(messages.KeyBalance,
		acct.Balance, acct.Credit, acct.Recommended))
}

// startDialogHandler returns the command handler that opens a dialog for cmd.
// Commands touching billing data require a linked account.
func (a *App) startDialogHandler(name dialog.CommandName, requireLogin bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		user, err := a.snapshot(ctx, c.Sender().ID, name)
		if errors.Is(err, storage.ErrUserNotFound) {
			if requireLogin {
				return a.send(c, a.catalog.Render(messages.KeyNotLinked))
			}
		} else if err != nil {
			return a.reportFailure(ctx, c, name, err)
		}

		cmd, ok := dialog.ByName(name)
		if !ok {
			return a.reportFailure(ctx, c, name, dialog.ErrInvalidState)
		}
		proj, err := a.proc.StartDialog(ctx, c.Text(), user, cmd)
		if err != nil {
			logger.Warn(ctx, "dialog", "dialog.start",
				slog.String("command", string(name)),
				slog.Int64("user_id", c.Sender().ID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			return a.send(c, a.catalog.Render(messages.KeyFailure))
		}
		return a.completeProjection(ctx, c, proj)
	}
}

// snapshot captures the caller state a dialog may consult. The agreement
// count is only fetched for the notification toggle, the one dialog whose
// offered choices depend on it.
func (a *App) snapshot(ctx context.Context, tgID int64, name dialog.CommandName) (dialog.User, error) {
	rec, err := a.users.GetByTelegramID(ctx, tgID)
	if err != nil {
		return dialog.User{TelegramID: tgID}, err
	}
	user := dialog.User{
		TelegramID:    tgID,
		Login:         rec.Login,
		AgreementID:   rec.AgreementID,
		NotifyEnabled: rec.NotifyEnabled,
	}
	if name == dialog.CommandNotifications {
		agreements, err := a.billing.Agreements(ctx, rec.Login)
		if err != nil {
			return user, err
		}
		for _, agr := range agreements {
			if agr.Active {
				user.AgreementCount++
			}
		}
	}
	return user, nil
}

// sendHistory renders the payment list as a Markdown message.
func (a *App) sendHistory(c tele.Context, opts dialog.HistoryOptions, payments []billing.Payment) error {
	if len(payments) == 0 {
		return a.send(c, a.catalog.Render(messages.KeyHistoryEmpty))
	}

	var b strings.Builder
	header := a.catalog.Render(messages.KeyHistoryHeader, opts.Since.Format("02.01.2006"))
	b.WriteString("*" + header.Text + "*\n")
	var total float64
	for _, p := range payments {
		source, err := format.EscapeMarkdown(p.Source, format.MarkdownV1)
		if err != nil {
			source = p.Source
		}
		fmt.Fprintf(&b, "%s  %.2f ₽  %s\n", p.Date.Format("02.01.2006"), p.Amount, source)
		total += p.Amount
	}
	fmt.Fprintf(&b, "Total: %.2f ₽", total)
	return tghelpers.SendMD(c, b.String())
}

// paymentLink builds the checkout URL for an online payment.
func (a *App) paymentLink(login string, amount int64) string {
	base := strings.TrimRight(a.cfg.Billing.PayURL, "/")
	q := url.Values{}
	q.Set("login", login)
	q.Set("amount", strconv.FormatInt(amount, 10))
	return base + "?" + q.Encode()
}
