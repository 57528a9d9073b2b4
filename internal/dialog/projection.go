package dialog

import "github.com/lanbilling/lanbot/internal/messages"

// Projection is the externally visible outcome of one dialog transition.
// Exactly one of Finished, Cancelled, Continuing holds.
type Projection struct {
	Command Command

	// Finished: the dialog completed and Options carries the result.
	Finished bool
	Options  Options

	// Cancelled: the dialog ended without a result.
	Cancelled bool

	// Prompt is what to show the user next; empty on Finished.
	Prompt messages.Content
}

// Continuing reports whether the dialog is still waiting for input.
func (p Projection) Continuing() bool {
	return !p.Finished && !p.Cancelled
}

func (p Projection) outcome() string {
	switch {
	case p.Finished:
		return "finished"
	case p.Cancelled:
		return "cancelled"
	default:
		return "continue"
	}
}
