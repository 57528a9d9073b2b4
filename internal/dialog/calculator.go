package dialog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lanbilling/lanbot/internal/metrics"
	"github.com/lanbilling/lanbot/internal/session"
)

// ErrNoCalculator means an amount token arrived with no calculator session.
var ErrNoCalculator = errors.New("dialog: no calculator state for user")

// The floor for every payment amount. Ceilings vary per command.
const amountFloor = 1

// CalcOutcome classifies the result of one calculator token.
type CalcOutcome int

const (
	// CalcUpdated: the working amount changed (or a no-op edit), keep going.
	CalcUpdated CalcOutcome = iota
	// CalcRejectedLow: the change would drop the amount below the floor.
	CalcRejectedLow
	// CalcRejectedHigh: the change would push the amount above the ceiling.
	CalcRejectedHigh
	// CalcNotSet: submit pressed while the amount is still zero.
	CalcNotSet
	// CalcSubmitted: the amount was confirmed; calculator state is gone.
	CalcSubmitted
	// CalcCancelled: the entry was abandoned; calculator state is gone.
	CalcCancelled
)

type calcState struct {
	amount  int64
	ceiling int64
}

// CalcResult reports the outcome of one token plus the bounds for rendering
// corrective prompts.
type CalcResult struct {
	Outcome CalcOutcome
	Amount  int64
	Floor   int64
	Ceiling int64
}

// Calculator is the shared bounded numeric-entry engine behind the payment
// dialogs. Digits append, +N/-N adjust, erase drops the last digit, clear
// resets, ok submits. A change that would leave [floor, ceiling] is rejected
// and the previous amount stands. Unknown tokens fail closed: state is
// removed and an error returned.
type Calculator struct {
	states  *session.Store[calcState]
	metrics *metrics.Set
}

// NewCalculator constructs the engine; set may be nil.
func NewCalculator(set *metrics.Set) *Calculator {
	return &Calculator{states: session.NewStore[calcState](), metrics: set}
}

// Start opens an entry session seeded with initial, bounded by ceiling.
func (c *Calculator) Start(userID, initial, ceiling int64) {
	if initial < 0 {
		initial = 0
	}
	c.states.Put(userID, calcState{amount: initial, ceiling: ceiling})
}

// Active reports whether the user has an open entry session.
func (c *Calculator) Active(userID int64) bool {
	return c.states.Contains(userID)
}

// Drop discards the user's entry session if present.
func (c *Calculator) Drop(userID int64) {
	c.states.Delete(userID)
}

// Apply folds one token into the user's entry session.
func (c *Calculator) Apply(userID int64, input string) (CalcResult, error) {
	st, ok := c.states.Get(userID)
	if !ok {
		return CalcResult{}, fmt.Errorf("user %d: %w", userID, ErrNoCalculator)
	}
	res := CalcResult{Amount: st.amount, Floor: amountFloor, Ceiling: st.ceiling}

	token := strings.ToLower(strings.TrimSpace(input))
	switch {
	case IsCancel(token):
		c.states.Delete(userID)
		res.Outcome = CalcCancelled
		return res, nil

	case token == "ok", token == "submit":
		if st.amount == 0 {
			res.Outcome = CalcNotSet
			return res, nil
		}
		c.states.Delete(userID)
		res.Outcome = CalcSubmitted
		return res, nil

	case token == "erase", token == "⌫":
		st.amount /= 10
		c.states.Put(userID, st)
		res.Outcome, res.Amount = CalcUpdated, st.amount
		return res, nil

	case token == "clear", token == "c":
		st.amount = 0
		c.states.Put(userID, st)
		res.Outcome, res.Amount = CalcUpdated, st.amount
		return res, nil

	case len(token) == 1 && token[0] >= '0' && token[0] <= '9':
		digit := int64(token[0] - '0')
		if st.amount > (math.MaxInt64-digit)/10 {
			res.Outcome = CalcRejectedHigh
			c.reject("upper")
			return res, nil
		}
		next := st.amount*10 + digit
		if next > st.ceiling {
			res.Outcome = CalcRejectedHigh
			c.reject("upper")
			return res, nil
		}
		st.amount = next
		c.states.Put(userID, st)
		res.Outcome, res.Amount = CalcUpdated, st.amount
		return res, nil

	case len(token) > 1 && (token[0] == '+' || token[0] == '-'):
		delta, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			break
		}
		next := st.amount + delta
		switch {
		case next < amountFloor:
			res.Outcome = CalcRejectedLow
			c.reject("lower")
		case next > st.ceiling:
			res.Outcome = CalcRejectedHigh
			c.reject("upper")
		default:
			st.amount = next
			c.states.Put(userID, st)
			res.Outcome, res.Amount = CalcUpdated, st.amount
		}
		return res, nil
	}

	// Fail closed on anything unrecognized.
	c.states.Delete(userID)
	return CalcResult{}, fmt.Errorf("calculator token %q: %w", input, ErrUnexpectedInput)
}

func (c *Calculator) reject(bound string) {
	if c.metrics != nil {
		c.metrics.CalculatorRejections.WithLabelValues(bound).Inc()
	}
}
