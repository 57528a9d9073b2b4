package dialog

import (
	"context"
	"fmt"

	"github.com/lanbilling/lanbot/internal/billing"
	"github.com/lanbilling/lanbot/internal/messages"
)

// PaymentTransformer runs the online (Yookassa) payment dialog: the same
// bounded amount entry as the promise dialog but with the higher online
// ceiling and no overdue pre-check. The amount starts at the recommended
// payment, falling back to zero when billing has no recommendation.
type PaymentTransformer struct {
	catalog messages.Catalog
	client  billing.Client
	calc    *Calculator
	ceiling int64
}

// NewPaymentTransformer constructs the transformer.
func NewPaymentTransformer(catalog messages.Catalog, client billing.Client, calc *Calculator, ceiling int64) *PaymentTransformer {
	return &PaymentTransformer{catalog: catalog, client: client, calc: calc, ceiling: ceiling}
}

func (t *PaymentTransformer) Command() Command {
	cmd, _ := ByName(CommandYookassaPayment)
	return cmd
}

// Cleanup discards the calculator state on any terminal path.
func (t *PaymentTransformer) Cleanup(userID int64) {
	t.calc.Drop(userID)
}

func (t *PaymentTransformer) Initialize(ctx context.Context, _ string, user User) (State, error) {
	recommended, err := t.client.RecommendedPayment(ctx, user.AgreementID)
	if err != nil {
		if !billing.IsFault(err, billing.FaultNotFound) {
			return State{}, err
		}
		recommended = 0
	}
	if recommended > t.ceiling {
		recommended = t.ceiling
	}

	t.calc.Start(user.TelegramID, recommended, t.ceiling)
	st := newState(t.Command(), PaymentOptions{}, amountScreen(t.catalog, recommended))
	st.StepData = recommended
	return st, nil
}

func (t *PaymentTransformer) Advance(_ context.Context, input string, user User, st State) (State, error) {
	step, err := st.CurrentStep()
	if err != nil {
		return State{}, err
	}
	if step != StepEnterAmount {
		return State{}, fmt.Errorf("payment step %q: %w", step, ErrUnknownStep)
	}
	res, err := t.calc.Apply(user.TelegramID, input)
	if err != nil {
		return State{}, err
	}
	return amountStep(t.catalog, st, res, func(amount int64) Options {
		return PaymentOptions{Amount: amount}
	})
}
