package dialog

import "context"

// User is the caller snapshot a transformer may consult. It is captured at
// dialog start and carried with the session so mid-dialog profile changes
// cannot shift the step sequence under the user.
type User struct {
	TelegramID     int64
	Login          string
	AgreementID    int64
	AgreementCount int
	NotifyEnabled  bool
}

// Transformer owns the step logic of one command: it builds the initial
// state and folds each subsequent input into the next state. Transformers
// are stateless between calls except for scoped caches they clean up
// themselves.
type Transformer interface {
	// Command returns the command this transformer serves.
	Command() Command
	// Initialize builds the first state of a fresh dialog.
	Initialize(ctx context.Context, input string, user User) (State, error)
	// Advance folds one user input into the stored state.
	Advance(ctx context.Context, input string, user User, st State) (State, error)
}

// Cleaner is implemented by transformers holding per-user sub-caches
// (calculator amounts, agreement candidates). The Processor calls Cleanup on
// every terminal path, including the cancel short-circuit and errors, so a
// stale cache never leaks into the next dialog.
type Cleaner interface {
	Cleanup(userID int64)
}
