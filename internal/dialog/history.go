package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lanbilling/lanbot/internal/messages"
)

// HistoryTransformer runs the payment-history period picker. Besides the
// offered week/month/year buttons it accepts a typed start date in a few
// common layouts; anything unparseable drops back to the main menu.
type HistoryTransformer struct {
	catalog messages.Catalog
	now     func() time.Time
}

// NewHistoryTransformer constructs the transformer.
func NewHistoryTransformer(catalog messages.Catalog) *HistoryTransformer {
	return &HistoryTransformer{catalog: catalog, now: time.Now}
}

func (t *HistoryTransformer) Command() Command {
	cmd, _ := ByName(CommandPaymentHistory)
	return cmd
}

func (t *HistoryTransformer) Initialize(_ context.Context, _ string, _ User) (State, error) {
	return newState(t.Command(), HistoryOptions{}, t.catalog.Render(messages.KeyHistoryPeriod)), nil
}

func (t *HistoryTransformer) Advance(_ context.Context, input string, _ User, st State) (State, error) {
	step, err := st.CurrentStep()
	if err != nil {
		return State{}, err
	}
	if step != StepChoosePeriod {
		return State{}, fmt.Errorf("history step %q: %w", step, ErrUnknownStep)
	}

	now := t.now()
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "week":
		return st.finish(HistoryOptions{Since: now.AddDate(0, 0, -7)}), nil
	case "month":
		return st.finish(HistoryOptions{Since: now.AddDate(0, -1, 0)}), nil
	case "year":
		return st.finish(HistoryOptions{Since: now.AddDate(-1, 0, 0)}), nil
	}

	if since, ok := parseFlexibleDate(input, now); ok {
		return st.finish(HistoryOptions{Since: since}), nil
	}
	return st.cancel(t.catalog.Render(messages.KeyMainMenu)), nil
}

// dateLayouts are tried in order against typed period input.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02.01.06",
	"02.01",
}

// parseFlexibleDate parses a typed start date. Layouts without a year assume
// the current year; a future result is not accepted.
func parseFlexibleDate(input string, now time.Time) (time.Time, bool) {
	input = strings.TrimSpace(input)
	for _, layout := range dateLayouts {
		ts, err := time.Parse(layout, input)
		if err != nil {
			continue
		}
		if ts.Year() == 0 {
			ts = ts.AddDate(now.Year(), 0, 0)
		}
		if ts.After(now) {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}
