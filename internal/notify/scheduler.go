package notify

import (
	"context"
	"time"

	"log/slog"

	"github.com/lanbilling/lanbot/core/logger"
	"github.com/lanbilling/lanbot/internal/billing"
	"github.com/lanbilling/lanbot/internal/messages"
	"github.com/lanbilling/lanbot/internal/metrics"
	"github.com/lanbilling/lanbot/internal/storage"
)

// Sender delivers a rendered reminder to a chat. The Telegram layer
// implements it; tests substitute a recorder.
type Sender interface {
	SendTo(chatID int64, content messages.Content) error
}

// Scheduler periodically scans opted-in users and reminds those whose
// balance has gone negative. One reminder per user/agreement pair per dedup
// TTL; delivered reminders are also recorded durably for auditing.
type Scheduler struct {
	users     *storage.Users
	reminders *storage.Reminders
	client    billing.Client
	ledger    *Ledger
	catalog   messages.Catalog
	sender    Sender
	metrics   *metrics.Set
	interval  time.Duration
}

// NewScheduler wires the scan loop; set may be nil.
func NewScheduler(
	users *storage.Users,
	reminders *storage.Reminders,
	client billing.Client,
	ledger *Ledger,
	catalog messages.Catalog,
	sender Sender,
	set *metrics.Set,
	interval time.Duration,
) *Scheduler {
	return &Scheduler{
		users:     users,
		reminders: reminders,
		client:    client,
		ledger:    ledger,
		catalog:   catalog,
		sender:    sender,
		metrics:   set,
		interval:  interval,
	}
}

// Run executes scan cycles until ctx is cancelled. The first cycle runs
// after one full interval so startup is not a thundering herd of billing
// calls.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.NTF.Info("scheduler started",
		slog.String("event", "notify.start"),
		slog.Duration("interval", s.interval),
	)
	for {
		select {
		case <-ctx.Done():
			logger.NTF.Info("scheduler stopped", slog.String("event", "notify.stop"))
			return
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Cycle runs one scan pass. Per-user failures are logged and skipped so one
// broken account cannot stall the rest of the batch.
func (s *Scheduler) Cycle(ctx context.Context) {
	start := time.Now()
	users, err := s.users.NotifiableUsers(ctx)
	if err != nil {
		logger.NTF.Error("user scan failed",
			slog.String("event", "notify.scan"),
			slog.String("err", err.Error()),
		)
		return
	}

	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		n, err := s.remind(ctx, u)
		if err != nil {
			logger.NTF.Warn("reminder failed",
				slog.String("event", "notify.remind"),
				slog.Int64("user_id", u.TelegramID),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent += n
	}

	logger.NTF.Info("cycle done",
		slog.String("event", "notify.cycle"),
		slog.Int("users", len(users)),
		slog.Int("sent", sent),
		slog.Duration("duration", logger.Took(start)),
	)
}

// remind checks one user and returns how many reminders went out.
func (s *Scheduler) remind(ctx context.Context, u storage.User) (int, error) {
	agreements, err := s.targets(ctx, u)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, a := range agreements {
		if a.Balance >= 0 {
			continue
		}
		dup, err := s.ledger.AlreadySent(ctx, u.TelegramID, a.ID)
		if err != nil {
			return sent, err
		}
		if dup {
			continue
		}
		content := s.catalog.Render(messages.KeyPaymentReminder, a.Number, a.Balance)
		if err := s.sender.SendTo(u.TelegramID, content); err != nil {
			return sent, err
		}
		if err := s.ledger.MarkSent(ctx, u.TelegramID, a.ID); err != nil {
			return sent, err
		}
		if err := s.reminders.Record(ctx, storage.Reminder{
			TelegramID:  u.TelegramID,
			AgreementID: a.ID,
			Balance:     a.Balance,
			SentAt:      time.Now(),
		}); err != nil {
			return sent, err
		}
		if s.metrics != nil {
			s.metrics.NotificationsSent.Inc()
		}
		sent++
	}
	return sent, nil
}

// targets resolves which agreements a user wants watched.
func (s *Scheduler) targets(ctx context.Context, u storage.User) ([]billing.Agreement, error) {
	if !u.NotifyAll {
		acct, err := s.client.Account(ctx, u.AgreementID)
		if err != nil {
			return nil, err
		}
		return []billing.Agreement{{ID: u.AgreementID, Number: acct.Login, Balance: acct.Balance, Active: true}}, nil
	}
	agreements, err := s.client.Agreements(ctx, u.Login)
	if err != nil {
		return nil, err
	}
	active := agreements[:0]
	for _, a := range agreements {
		if a.Active {
			active = append(active, a)
		}
	}
	return active, nil
}
