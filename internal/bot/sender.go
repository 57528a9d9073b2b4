package bot

import (
	"errors"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/lanbilling/lanbot/core/telegram/helpers"
	"github.com/lanbilling/lanbot/core/telegram/keyboard"
	"github.com/lanbilling/lanbot/internal/messages"
	"github.com/lanbilling/lanbot/internal/metrics"
)

// botSender delivers rendered content outside a handler context, used by the
// notification scheduler. The bot reference arrives on startup.
type botSender struct {
	bot     atomic.Pointer[tele.Bot]
	metrics *metrics.Set
}

func (s *botSender) attach(b *tele.Bot) {
	s.bot.Store(b)
}

// SendTo implements notify.Sender.
func (s *botSender) SendTo(chatID int64, content messages.Content) error {
	b := s.bot.Load()
	if b == nil {
		return errors.New("bot: sender not attached yet")
	}
	_, err := b.Send(&tele.Chat{ID: chatID}, content.Text, markupFor(content))
	if err == nil && s.metrics != nil {
		s.metrics.MessagesSent.Inc()
	}
	return err
}

// dialogUnique tags inline buttons produced from catalog content so callback
// payloads round-trip as dialog tokens.
const dialogUnique = "dlg"

// markupFor converts catalog button rows into an inline keyboard. Content
// without buttons removes any reply keyboard left on screen.
func markupFor(content messages.Content) *tele.ReplyMarkup {
	if len(content.Buttons) == 0 {
		return keyboard.RemoveKeyboard()
	}
	rows := make([][]keyboard.InlineBtn, 0, len(content.Buttons))
	for _, row := range content.Buttons {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, btn := range row {
			r = append(r, keyboard.InlineBtn{
				Text:   btn.Label,
				Unique: dialogUnique,
				Data:   btn.Data,
			})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

// send delivers catalog content to the current recipient through the async
// dispatcher.
func (a *App) send(c tele.Context, content messages.Content) error {
	if content.Empty() {
		return nil
	}
	return tghelpers.SendText(c, content.Text, &tele.SendOptions{
		ReplyMarkup: markupFor(content),
	})
}
