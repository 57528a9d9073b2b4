package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lanbilling/lanbot/internal/messages"
)

// ExitTransformer runs the single-step exit confirmation. Only an explicit
// "yes" finishes; any other input is a consistency failure that aborts the
// dialog, so a stray message can never delete an account.
type ExitTransformer struct {
	catalog messages.Catalog
}

// NewExitTransformer constructs the transformer.
func NewExitTransformer(catalog messages.Catalog) *ExitTransformer {
	return &ExitTransformer{catalog: catalog}
}

func (t *ExitTransformer) Command() Command {
	cmd, _ := ByName(CommandExit)
	return cmd
}

func (t *ExitTransformer) Initialize(_ context.Context, _ string, _ User) (State, error) {
	return newState(t.Command(), ExitOptions{}, t.catalog.Render(messages.KeyExitConfirm)), nil
}

func (t *ExitTransformer) Advance(_ context.Context, input string, _ User, st State) (State, error) {
	step, err := st.CurrentStep()
	if err != nil {
		return State{}, err
	}
	if step != StepConfirmExit {
		return State{}, fmt.Errorf("exit step %q: %w", step, ErrUnknownStep)
	}
	if strings.EqualFold(strings.TrimSpace(input), "yes") {
		return st.finish(ExitOptions{}), nil
	}
	return State{}, fmt.Errorf("exit confirmation %q: %w", input, ErrUnexpectedInput)
}
