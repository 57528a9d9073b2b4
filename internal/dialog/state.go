package dialog

import (
	"errors"
	"fmt"

	"github.com/lanbilling/lanbot/internal/messages"
)

// Consistency errors. Any of these aborts the dialog and clears the session;
// business-level outcomes go through billing.Fault instead.
var (
	ErrNoSession       = errors.New("dialog: no active session for user")
	ErrNotDialog       = errors.New("dialog: command does not start a dialog")
	ErrNoTransformer   = errors.New("dialog: no transformer registered for command")
	ErrUnexpectedInput = errors.New("dialog: unexpected input for current step")
	ErrUnknownStep     = errors.New("dialog: unknown step in session state")
	ErrInvalidState    = errors.New("dialog: inconsistent session state")
)

// Response tells the Processor what to do with a returned State.
type Response int

const (
	// RespondContinue keeps the session and shows Prompt for the current step.
	RespondContinue Response = iota
	// RespondCancel ends the dialog without a result, showing Prompt.
	RespondCancel
	// RespondFinish ends the dialog with completed Options.
	RespondFinish
)

// State is the full snapshot of one in-progress dialog. Transformers receive
// it by value and return the next snapshot; the Processor owns storage.
type State struct {
	Command   Command
	Options   Options
	Steps     []Step
	StepIndex int
	StepData  any
	Response  Response
	Prompt    messages.Content
}

// CurrentStep returns the step the next input belongs to.
func (s State) CurrentStep() (Step, error) {
	if s.StepIndex < 0 || s.StepIndex >= len(s.Steps) {
		return "", fmt.Errorf("step index %d of %d: %w", s.StepIndex, len(s.Steps), ErrInvalidState)
	}
	return s.Steps[s.StepIndex], nil
}

// advance stores the accumulated options, moves to the next step and sets
// the prompt for it.
func (s State) advance(opts Options, prompt messages.Content) State {
	s.Options = opts
	s.StepIndex++
	s.Response = RespondContinue
	s.Prompt = prompt
	return s
}

// retry keeps the current step and replaces the prompt, typically with a
// corrective message.
func (s State) retry(prompt messages.Content) State {
	s.Response = RespondContinue
	s.Prompt = prompt
	return s
}

// cancel ends the dialog without a result.
func (s State) cancel(prompt messages.Content) State {
	s.Response = RespondCancel
	s.Prompt = prompt
	return s
}

// finish ends the dialog with completed options.
func (s State) finish(opts Options) State {
	s.Options = opts
	s.Response = RespondFinish
	s.Prompt = messages.Content{}
	return s
}

// newState builds the initial snapshot for a command, positioned on the
// first step with the given prompt.
func newState(cmd Command, opts Options, prompt messages.Content) State {
	return State{
		Command:  cmd,
		Options:  opts,
		Steps:    StepsFor(cmd.Name),
		Response: RespondContinue,
		Prompt:   prompt,
	}
}
