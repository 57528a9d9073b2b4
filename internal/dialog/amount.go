package dialog

import (
	"github.com/lanbilling/lanbot/internal/messages"
)

// amountScreen renders the numeric keypad for the current working amount.
func amountScreen(catalog messages.Catalog, amount int64) messages.Content {
	return catalog.Render(messages.KeyAmountScreen, amount)
}

// amountStep maps a calculator result onto the next dialog state, shared by
// the promise and online payment dialogs. Rejections and not-set prepend a
// corrective line to the keypad so the user keeps their working amount.
func amountStep(catalog messages.Catalog, st State, res CalcResult, done func(amount int64) Options) (State, error) {
	switch res.Outcome {
	case CalcSubmitted:
		return st.finish(done(res.Amount)), nil
	case CalcCancelled:
		return st.cancel(catalog.Render(messages.KeyMainMenu)), nil
	case CalcUpdated:
		return st.retry(amountScreen(catalog, res.Amount)), nil
	case CalcRejectedHigh:
		return st.retry(corrective(catalog, messages.KeyAmountTooHigh, res.Ceiling, res.Amount)), nil
	case CalcRejectedLow:
		return st.retry(corrective(catalog, messages.KeyAmountTooLow, res.Floor, res.Amount)), nil
	case CalcNotSet:
		screen := amountScreen(catalog, res.Amount)
		screen.Text = catalog.Render(messages.KeyAmountNotSet).Text + "\n\n" + screen.Text
		return st.retry(screen), nil
	}
	return State{}, ErrInvalidState
}

func corrective(catalog messages.Catalog, key messages.Key, bound, amount int64) messages.Content {
	screen := amountScreen(catalog, amount)
	screen.Text = catalog.Render(key, bound).Text + "\n\n" + screen.Text
	return screen
}
