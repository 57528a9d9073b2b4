package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lanbilling/lanbot/internal/billing"
	"github.com/lanbilling/lanbot/internal/messages"
	"github.com/lanbilling/lanbot/internal/session"
)

// SwitchTransformer runs the agreement-switch dialog. Initialization fetches
// the user's agreements up front; candidates for the choice step are cached
// per user so the second step never re-queries billing.
type SwitchTransformer struct {
	catalog messages.Catalog
	client  billing.Client
	cache   *session.Store[[]billing.Agreement]
}

// NewSwitchTransformer constructs the transformer.
func NewSwitchTransformer(catalog messages.Catalog, client billing.Client) *SwitchTransformer {
	return &SwitchTransformer{
		catalog: catalog,
		client:  client,
		cache:   session.NewStore[[]billing.Agreement](),
	}
}

func (t *SwitchTransformer) Command() Command {
	cmd, _ := ByName(CommandSwitchAgreement)
	return cmd
}

// Cleanup discards the cached candidates on any terminal path.
func (t *SwitchTransformer) Cleanup(userID int64) {
	t.cache.Delete(userID)
}

func (t *SwitchTransformer) Initialize(ctx context.Context, _ string, user User) (State, error) {
	agreements, err := t.client.Agreements(ctx, user.Login)
	if err != nil {
		return State{}, err
	}

	var current billing.Agreement
	candidates := make([]billing.Agreement, 0, len(agreements))
	for _, a := range agreements {
		if a.ID == user.AgreementID {
			current = a
			continue
		}
		if a.Active {
			candidates = append(candidates, a)
		}
	}

	st := newState(t.Command(), SwitchOptions{}, messages.Content{})
	if len(candidates) == 0 {
		// Nothing to switch to: show the info screen and end right away.
		return st.cancel(t.catalog.Render(messages.KeyAgreementInfo, current.Number, current.Balance)), nil
	}

	t.cache.Put(user.TelegramID, candidates)
	st.Prompt = t.catalog.Render(messages.KeyAgreementOffer, current.Number, current.Balance)
	return st, nil
}

func (t *SwitchTransformer) Advance(_ context.Context, input string, user User, st State) (State, error) {
	step, err := st.CurrentStep()
	if err != nil {
		return State{}, err
	}
	token := strings.ToLower(strings.TrimSpace(input))

	switch step {
	case StepShowCurrent:
		if token != "choose" {
			// Anything but the offer button drops back to the main menu.
			t.cache.Delete(user.TelegramID)
			return st.cancel(t.catalog.Render(messages.KeyMainMenu)), nil
		}
		candidates, ok := t.cache.Get(user.TelegramID)
		if !ok {
			return State{}, fmt.Errorf("agreement candidates missing for %d: %w", user.TelegramID, ErrInvalidState)
		}
		prompt := t.catalog.Render(messages.KeyAgreementChoose)
		for _, a := range candidates {
			prompt.Buttons = append(prompt.Buttons, messages.Row(messages.Button{
				Label: fmt.Sprintf("%s (%.2f)", a.Number, a.Balance),
				Data:  strconv.FormatInt(a.ID, 10),
			}))
		}
		prompt.Buttons = append(prompt.Buttons, messages.Row(messages.Button{Label: "❌ Cancel", Data: "cancel"}))
		return st.advance(st.Options, prompt), nil

	case StepChooseAgreement:
		candidates, ok := t.cache.Get(user.TelegramID)
		if !ok {
			return State{}, fmt.Errorf("agreement candidates missing for %d: %w", user.TelegramID, ErrInvalidState)
		}
		t.cache.Delete(user.TelegramID)
		for _, a := range candidates {
			if token == strconv.FormatInt(a.ID, 10) || strings.EqualFold(token, a.Number) {
				return st.finish(SwitchOptions{AgreementID: a.ID, Number: a.Number}), nil
			}
		}
		return st.cancel(t.catalog.Render(messages.KeyMainMenu)), nil
	}
	return State{}, fmt.Errorf("agreement step %q: %w", step, ErrUnknownStep)
}
