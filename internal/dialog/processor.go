package dialog

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/lanbilling/lanbot/core/logger"
	"github.com/lanbilling/lanbot/internal/messages"
	"github.com/lanbilling/lanbot/internal/metrics"
	"github.com/lanbilling/lanbot/internal/session"
)

// entry is what the registry holds per user: the dialog state plus the user
// snapshot captured at dialog start.
type entry struct {
	User  User
	State State
}

// Processor is the dialog engine front door. It owns the session registry
// and routes inputs to the transformer of the user's active command.
type Processor struct {
	catalog      messages.Catalog
	transformers map[CommandName]Transformer
	sessions     *session.Store[entry]
	metrics      *metrics.Set
}

// Option configures a Processor.
type Option func(*Processor)

// WithMetrics attaches the Prometheus collector set.
func WithMetrics(set *metrics.Set) Option {
	return func(p *Processor) { p.metrics = set }
}

// NewProcessor wires transformers into a dispatch table. Every registered
// dialog command must have exactly one transformer; a gap is a startup error
// rather than a runtime surprise.
func NewProcessor(catalog messages.Catalog, transformers []Transformer, opts ...Option) (*Processor, error) {
	p := &Processor{
		catalog:      catalog,
		transformers: make(map[CommandName]Transformer, len(transformers)),
		sessions:     session.NewStore[entry](),
	}
	for _, tr := range transformers {
		cmd := tr.Command()
		if !cmd.Dialog {
			return nil, fmt.Errorf("dialog: transformer for non-dialog command %q", cmd.Name)
		}
		if _, dup := p.transformers[cmd.Name]; dup {
			return nil, fmt.Errorf("dialog: duplicate transformer for %q", cmd.Name)
		}
		p.transformers[cmd.Name] = tr
	}
	for _, cmd := range Commands() {
		if cmd.Dialog {
			if _, ok := p.transformers[cmd.Name]; !ok {
				return nil, fmt.Errorf("dialog: command %q: %w", cmd.Name, ErrNoTransformer)
			}
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Contains reports whether the user has an in-progress dialog, i.e. whether
// the next plain message belongs to the engine rather than the command router.
func (p *Processor) Contains(userID int64) bool {
	return p.sessions.Contains(userID)
}

// StartDialog begins a dialog for cmd. A previous session for the same user,
// if any, is discarded first. On error the user ends with no session.
func (p *Processor) StartDialog(ctx context.Context, input string, user User, cmd Command) (Projection, error) {
	if !cmd.Dialog {
		return Projection{}, fmt.Errorf("command %q: %w", cmd.Name, ErrNotDialog)
	}
	if old, ok := p.sessions.Get(user.TelegramID); ok {
		p.drop(user.TelegramID, old.State.Command.Name)
	}
	tr := p.transformers[cmd.Name]
	st, err := tr.Initialize(ctx, input, user)
	if err != nil {
		p.drop(user.TelegramID, cmd.Name)
		return Projection{}, err
	}
	return p.resolve(user, st)
}

// ProcessOption folds one input into the user's active dialog. The cancel
// token short-circuits to a cancellation before the transformer runs. Any
// transformer error is terminal: the session is cleared and the error
// propagated to the caller.
func (p *Processor) ProcessOption(ctx context.Context, userID int64, input string) (Projection, error) {
	e, ok := p.sessions.Get(userID)
	if !ok {
		return Projection{}, fmt.Errorf("user %d: %w", userID, ErrNoSession)
	}
	cmd := e.State.Command

	if IsCancel(input) {
		p.drop(userID, cmd.Name)
		p.count(cmd.Name, "cancelled")
		logger.DLG.Info("dialog cancelled",
			slog.String("event", "dialog.cancel"),
			slog.Int64("user_id", userID),
			slog.String("command", string(cmd.Name)),
		)
		return Projection{
			Command:   cmd,
			Cancelled: true,
			Prompt:    p.catalog.Render(messages.KeyMainMenu),
		}, nil
	}

	tr, ok := p.transformers[cmd.Name]
	if !ok {
		p.drop(userID, cmd.Name)
		return Projection{}, fmt.Errorf("command %q: %w", cmd.Name, ErrNoTransformer)
	}

	st, err := tr.Advance(ctx, input, e.User, e.State)
	if err != nil {
		p.drop(userID, cmd.Name)
		p.count(cmd.Name, "error")
		return Projection{}, err
	}
	return p.resolve(e.User, st)
}

// resolve maps a transformer-produced state onto the registry and the
// outward projection.
func (p *Processor) resolve(user User, st State) (Projection, error) {
	userID := user.TelegramID
	proj := Projection{Command: st.Command, Prompt: st.Prompt}

	switch st.Response {
	case RespondFinish:
		p.drop(userID, st.Command.Name)
		proj.Finished = true
		proj.Options = st.Options
		proj.Prompt = messages.Content{}
	case RespondCancel:
		p.drop(userID, st.Command.Name)
		proj.Cancelled = true
	case RespondContinue:
		if st.StepIndex < 0 || st.StepIndex >= len(st.Steps) {
			p.drop(userID, st.Command.Name)
			return Projection{}, fmt.Errorf("command %q step index %d: %w",
				st.Command.Name, st.StepIndex, ErrInvalidState)
		}
		p.sessions.Put(userID, entry{User: user, State: st})
		p.gauge()
	default:
		p.drop(userID, st.Command.Name)
		return Projection{}, fmt.Errorf("command %q response %d: %w",
			st.Command.Name, st.Response, ErrInvalidState)
	}

	p.count(st.Command.Name, proj.outcome())
	if logger.ShouldSampleDebug() {
		logger.DLG.Debug("dialog transition",
			slog.String("event", "dialog.transition"),
			slog.Int64("user_id", userID),
			slog.String("command", string(st.Command.Name)),
			slog.Int("step_index", st.StepIndex),
			slog.String("outcome", proj.outcome()),
		)
	}
	return proj, nil
}

// drop removes the session and lets the command's transformer clear its
// scoped caches. Safe to call when no session exists.
func (p *Processor) drop(userID int64, name CommandName) {
	p.sessions.Delete(userID)
	if tr, ok := p.transformers[name]; ok {
		if cl, ok := tr.(Cleaner); ok {
			cl.Cleanup(userID)
		}
	}
	p.gauge()
}

func (p *Processor) count(name CommandName, outcome string) {
	if p.metrics != nil {
		p.metrics.Transitions.WithLabelValues(string(name), outcome).Inc()
	}
}

func (p *Processor) gauge() {
	if p.metrics != nil {
		p.metrics.SessionsActive.Set(float64(p.sessions.Len()))
	}
}
