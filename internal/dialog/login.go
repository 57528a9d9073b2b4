package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lanbilling/lanbot/internal/messages"
)

// LoginTransformer collects a username and a password in two steps.
// Inputs are accepted as typed; validation against the billing system
// happens after the dialog finishes.
type LoginTransformer struct {
	catalog messages.Catalog
}

// NewLoginTransformer constructs the transformer.
func NewLoginTransformer(catalog messages.Catalog) *LoginTransformer {
	return &LoginTransformer{catalog: catalog}
}

func (t *LoginTransformer) Command() Command {
	cmd, _ := ByName(CommandLogin)
	return cmd
}

func (t *LoginTransformer) Initialize(_ context.Context, _ string, _ User) (State, error) {
	return newState(t.Command(), LoginOptions{}, t.catalog.Render(messages.KeyEnterUsername)), nil
}

func (t *LoginTransformer) Advance(_ context.Context, input string, _ User, st State) (State, error) {
	step, err := st.CurrentStep()
	if err != nil {
		return State{}, err
	}
	switch step {
	case StepUsername:
		name := strings.TrimSpace(input)
		if name == "" {
			return st.retry(t.catalog.Render(messages.KeyEnterUsername)), nil
		}
		return st.advance(LoginOptions{Username: name}, t.catalog.Render(messages.KeyEnterPassword)), nil

	case StepPassword:
		opts, ok := st.Options.(LoginOptions)
		if !ok {
			return State{}, fmt.Errorf("login options %T: %w", st.Options, ErrInvalidState)
		}
		opts.Password = strings.TrimSpace(input)
		if opts.Password == "" {
			return st.retry(t.catalog.Render(messages.KeyEnterPassword)), nil
		}
		return st.finish(opts), nil
	}
	return State{}, fmt.Errorf("login step %q: %w", step, ErrUnknownStep)
}
