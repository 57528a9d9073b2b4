package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lanbilling/lanbot/internal/messages"
)

// NotifyTransformer runs the notification toggle. The offered choices depend
// on the user's current preference and agreement count; picking anything
// else re-shows the offer with a corrective note instead of failing, this is
// the one dialog where invalid choices are expected user behavior.
type NotifyTransformer struct {
	catalog messages.Catalog
}

// NewNotifyTransformer constructs the transformer.
func NewNotifyTransformer(catalog messages.Catalog) *NotifyTransformer {
	return &NotifyTransformer{catalog: catalog}
}

func (t *NotifyTransformer) Command() Command {
	cmd, _ := ByName(CommandNotifications)
	return cmd
}

func (t *NotifyTransformer) Initialize(_ context.Context, _ string, user User) (State, error) {
	return newState(t.Command(), NotifyOptions{}, t.offer(user)), nil
}

func (t *NotifyTransformer) Advance(_ context.Context, input string, user User, st State) (State, error) {
	step, err := st.CurrentStep()
	if err != nil {
		return State{}, err
	}
	if step != StepChooseMode {
		return State{}, fmt.Errorf("notifications step %q: %w", step, ErrUnknownStep)
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "enable":
		if !user.NotifyEnabled {
			return st.finish(NotifyOptions{Enabled: true}), nil
		}
	case "disable":
		if user.NotifyEnabled {
			return st.finish(NotifyOptions{Enabled: false}), nil
		}
	case "all":
		if user.AgreementCount > 1 {
			return st.finish(NotifyOptions{Enabled: true, AllAgreements: true}), nil
		}
	}

	prompt := t.catalog.Render(messages.KeyNotifyInvalid)
	offer := t.offer(user)
	prompt.Text = prompt.Text + "\n\n" + offer.Text
	prompt.Buttons = offer.Buttons
	return st.retry(prompt), nil
}

// offer renders the state-dependent choice screen.
func (t *NotifyTransformer) offer(user User) messages.Content {
	status := "disabled"
	if user.NotifyEnabled {
		status = "enabled"
	}
	content := t.catalog.Render(messages.KeyNotifyOffer, status)

	var row []messages.Button
	if user.NotifyEnabled {
		row = append(row, messages.Button{Label: "Disable", Data: "disable"})
	} else {
		row = append(row, messages.Button{Label: "Enable", Data: "enable"})
	}
	if user.AgreementCount > 1 {
		row = append(row, messages.Button{Label: "Enable for all agreements", Data: "all"})
	}
	content.Buttons = [][]messages.Button{
		messages.Row(row...),
		messages.Row(messages.Button{Label: "❌ Cancel", Data: "cancel"}),
	}
	return content
}
