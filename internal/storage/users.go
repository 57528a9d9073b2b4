// Package storage persists durable entities: user records and notification
// bookkeeping. In-progress conversations are deliberately not persisted.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lanbilling/lanbot/core/logger"
	"log/slog"
)

// ErrUserNotFound is returned when no record exists for a Telegram id.
var ErrUserNotFound = errors.New("storage: user not found")

// User is a durable record of a linked subscriber.
type User struct {
	TelegramID    int64     `db:"telegram_id"`
	Login         string    `db:"login"`
	AgreementID   int64     `db:"agreement_id"`
	NotifyEnabled bool      `db:"notify_enabled"`
	NotifyAll     bool      `db:"notify_all"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Users is the sqlx-backed repository for user records.
type Users struct {
	db *sqlx.DB
}

// NewUsers constructs the repository.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// GetByTelegramID loads a user record by Telegram id.
func (r *Users) GetByTelegramID(ctx context.Context, tgID int64) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u,
		`SELECT telegram_id, login, agreement_id, notify_enabled, notify_all, created_at, updated_at
		   FROM users WHERE telegram_id = $1`, tgID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("storage: get user %d: %w", tgID, err)
	}
	return u, nil
}

// Upsert creates or refreshes the record after a successful login.
func (r *Users) Upsert(ctx context.Context, u User) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id, login, agreement_id, notify_enabled, notify_all, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (telegram_id) DO UPDATE
		 SET login = EXCLUDED.login,
		     agreement_id = EXCLUDED.agreement_id,
		     updated_at = now()`,
		u.TelegramID, u.Login, u.AgreementID, u.NotifyEnabled, u.NotifyAll)
	if err != nil {
		return fmt.Errorf("storage: upsert user %d: %w", u.TelegramID, err)
	}
	logger.DB.Debug("user upserted",
		slog.String("event", "users.upsert"),
		slog.Int64("user_id", u.TelegramID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// SetNotifications updates the notification preference collected by the
// notification toggle dialog.
func (r *Users) SetNotifications(ctx context.Context, tgID int64, enabled, all bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET notify_enabled = $2, notify_all = $3, updated_at = now()
		  WHERE telegram_id = $1`, tgID, enabled, all)
	if err != nil {
		return fmt.Errorf("storage: set notifications %d: %w", tgID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetAgreement switches the active agreement for a user.
func (r *Users) SetAgreement(ctx context.Context, tgID, agreementID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET agreement_id = $2, updated_at = now() WHERE telegram_id = $1`,
		tgID, agreementID)
	if err != nil {
		return fmt.Errorf("storage: set agreement %d: %w", tgID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes the record; used when a user confirms /exit.
func (r *Users) Delete(ctx context.Context, tgID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE telegram_id = $1`, tgID)
	if err != nil {
		return fmt.Errorf("storage: delete user %d: %w", tgID, err)
	}
	return nil
}

// NotifiableUsers lists users with notifications enabled, for the scheduler.
func (r *Users) NotifiableUsers(ctx context.Context) ([]User, error) {
	var out []User
	err := r.db.SelectContext(ctx, &out,
		`SELECT telegram_id, login, agreement_id, notify_enabled, notify_all, created_at, updated_at
		   FROM users WHERE notify_enabled ORDER BY telegram_id`)
	if err != nil {
		return nil, fmt.Errorf("storage: notifiable users: %w", err)
	}
	return out, nil
}
