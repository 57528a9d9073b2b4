package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Reminder is a bookkeeping row for a sent payment notification.
type Reminder struct {
	ID          int64     `db:"id"`
	TelegramID  int64     `db:"telegram_id"`
	AgreementID int64     `db:"agreement_id"`
	Balance     float64   `db:"balance"`
	SentAt      time.Time `db:"sent_at"`
}

// Reminders records which notifications were actually delivered, so operator
// tooling can audit the scheduler independently of the Redis dedup ledger.
type Reminders struct {
	db *sqlx.DB
}

// NewReminders constructs the repository.
func NewReminders(db *sqlx.DB) *Reminders {
	return &Reminders{db: db}
}

// Record stores one delivered reminder.
func (r *Reminders) Record(ctx context.Context, rem Reminder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (telegram_id, agreement_id, balance, sent_at)
		 VALUES ($1, $2, $3, $4)`,
		rem.TelegramID, rem.AgreementID, rem.Balance, rem.SentAt)
	if err != nil {
		return fmt.Errorf("storage: record reminder for %d: %w", rem.TelegramID, err)
	}
	return nil
}

// LastSent returns the time of the latest reminder for a user, zero if none.
func (r *Reminders) LastSent(ctx context.Context, tgID int64) (time.Time, error) {
	var ts time.Time
	err := r.db.GetContext(ctx, &ts,
		`SELECT COALESCE(MAX(sent_at), 'epoch'::timestamptz) FROM reminders WHERE telegram_id = $1`, tgID)
	if err != nil {
		return time.Time{}, fmt.Errorf("storage: last sent for %d: %w", tgID, err)
	}
	return ts, nil
}
