package dialog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculatorDigitsEraseClear(t *testing.T) {
	c := NewCalculator(nil)
	c.Start(1, 0, 50000)

	res, err := c.Apply(1, "4")
	require.NoError(t, err)
	require.Equal(t, CalcUpdated, res.Outcome)
	require.EqualValues(t, 4, res.Amount)

	res, err = c.Apply(1, "2")
	require.NoError(t, err)
	require.EqualValues(t, 42, res.Amount)

	res, err = c.Apply(1, "erase")
	require.NoError(t, err)
	require.EqualValues(t, 4, res.Amount)

	res, err = c.Apply(1, "clear")
	require.NoError(t, err)
	require.EqualValues(t, 0, res.Amount)
}

func TestCalculatorSubmitZeroIsNotSet(t *testing.T) {
	c := NewCalculator(nil)
	c.Start(1, 0, 1500)

	res, err := c.Apply(1, "ok")
	require.NoError(t, err)
	require.Equal(t, CalcNotSet, res.Outcome)
	require.True(t, c.Active(1), "not-set keeps the session open")

	_, err = c.Apply(1, "7")
	require.NoError(t, err)
	res, err = c.Apply(1, "ok")
	require.NoError(t, err)
	require.Equal(t, CalcSubmitted, res.Outcome)
	require.EqualValues(t, 7, res.Amount)
	require.False(t, c.Active(1))
}

func TestCalculatorUpperBound(t *testing.T) {
	c := NewCalculator(nil)
	c.Start(1, 1450, 1500)

	res, err := c.Apply(1, "+100")
	require.NoError(t, err)
	require.Equal(t, CalcRejectedHigh, res.Outcome)
	require.EqualValues(t, 1450, res.Amount, "rejected change keeps the previous amount")
	require.EqualValues(t, 1500, res.Ceiling)

	// Appending a digit overshoots too.
	res, err = c.Apply(1, "9")
	require.NoError(t, err)
	require.Equal(t, CalcRejectedHigh, res.Outcome)
	require.EqualValues(t, 1450, res.Amount)

	res, err = c.Apply(1, "+50")
	require.NoError(t, err)
	require.Equal(t, CalcUpdated, res.Outcome)
	require.EqualValues(t, 1500, res.Amount, "ceiling itself is allowed")
}

func TestCalculatorLowerBound(t *testing.T) {
	c := NewCalculator(nil)
	c.Start(1, 50, 1500)

	res, err := c.Apply(1, "-100")
	require.NoError(t, err)
	require.Equal(t, CalcRejectedLow, res.Outcome)
	require.EqualValues(t, 50, res.Amount)
	require.EqualValues(t, 1, res.Floor)

	res, err = c.Apply(1, "-49")
	require.NoError(t, err)
	require.Equal(t, CalcUpdated, res.Outcome)
	require.EqualValues(t, 1, res.Amount, "floor itself is allowed")
}

func TestCalculatorCancelDropsState(t *testing.T) {
	c := NewCalculator(nil)
	c.Start(1, 300, 1500)

	res, err := c.Apply(1, "cancel")
	require.NoError(t, err)
	require.Equal(t, CalcCancelled, res.Outcome)
	require.False(t, c.Active(1))
}

func TestCalculatorUnknownTokenFailsClosed(t *testing.T) {
	c := NewCalculator(nil)
	c.Start(1, 300, 1500)

	_, err := c.Apply(1, "banana")
	require.ErrorIs(t, err, ErrUnexpectedInput)
	require.False(t, c.Active(1), "unknown token must drop the session")

	_, err = c.Apply(1, "1")
	require.ErrorIs(t, err, ErrNoCalculator)
}

func TestCalculatorIndependentUsers(t *testing.T) {
	c := NewCalculator(nil)
	c.Start(1, 100, 1500)
	c.Start(2, 200, 1500)

	_, err := c.Apply(1, "+50")
	require.NoError(t, err)

	res, err := c.Apply(2, "ok")
	require.NoError(t, err)
	require.EqualValues(t, 200, res.Amount)

	res, err = c.Apply(1, "ok")
	require.NoError(t, err)
	require.EqualValues(t, 150, res.Amount)
}
