package dialog

import (
	"context"
	"fmt"

	"github.com/lanbilling/lanbot/internal/billing"
	"github.com/lanbilling/lanbot/internal/messages"
)

// PromiseTransformer runs the promise-payment dialog. Initialization fetches
// the recommended payment; when it already exceeds the promise ceiling the
// dialog cancels immediately with the overdue-debts screen, otherwise the
// calculator starts seeded with the recommendation.
type PromiseTransformer struct {
	catalog messages.Catalog
	client  billing.Client
	calc    *Calculator
	ceiling int64
}

// NewPromiseTransformer constructs the transformer.
func NewPromiseTransformer(catalog messages.Catalog, client billing.Client, calc *Calculator, ceiling int64) *PromiseTransformer {
	return &PromiseTransformer{catalog: catalog, client: client, calc: calc, ceiling: ceiling}
}

func (t *PromiseTransformer) Command() Command {
	cmd, _ := ByName(CommandPromisePayment)
	return cmd
}

// Cleanup discards the calculator state on any terminal path.
func (t *PromiseTransformer) Cleanup(userID int64) {
	t.calc.Drop(userID)
}

func (t *PromiseTransformer) Initialize(ctx context.Context, _ string, user User) (State, error) {
	recommended, err := t.client.RecommendedPayment(ctx, user.AgreementID)
	if err != nil {
		return State{}, err
	}

	st := newState(t.Command(), PromiseOptions{}, messages.Content{})
	if recommended > t.ceiling {
		return st.cancel(t.catalog.Render(messages.KeyDebtsOverdue, recommended, t.ceiling)), nil
	}

	t.calc.Start(user.TelegramID, recommended, t.ceiling)
	st.StepData = recommended
	st.Prompt = amountScreen(t.catalog, recommended)
	return st, nil
}

func (t *PromiseTransformer) Advance(_ context.Context, input string, user User, st State) (State, error) {
	step, err := st.CurrentStep()
	if err != nil {
		return State{}, err
	}
	if step != StepEnterAmount {
		return State{}, fmt.Errorf("promise step %q: %w", step, ErrUnknownStep)
	}
	res, err := t.calc.Apply(user.TelegramID, input)
	if err != nil {
		return State{}, err
	}
	return amountStep(t.catalog, st, res, func(amount int64) Options {
		return PromiseOptions{Amount: amount}
	})
}
