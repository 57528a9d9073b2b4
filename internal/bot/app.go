// Package bot wires the dialog engine into the Telegram runtime: command
// registration, projection rendering, post-dialog business actions, and the
// background notification scheduler.
package bot

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/lanbilling/lanbot/core/config"
	"github.com/lanbilling/lanbot/core/database"
	"github.com/lanbilling/lanbot/core/logger"
	coretelegram "github.com/lanbilling/lanbot/core/telegram"
	"github.com/lanbilling/lanbot/core/telegram/commands"
	"github.com/lanbilling/lanbot/core/telegram/middleware"
	"github.com/lanbilling/lanbot/core/telegram/router"
	"github.com/lanbilling/lanbot/internal/billing"
	"github.com/lanbilling/lanbot/internal/dialog"
	"github.com/lanbilling/lanbot/internal/messages"
	"github.com/lanbilling/lanbot/internal/metrics"
	"github.com/lanbilling/lanbot/internal/notify"
	"github.com/lanbilling/lanbot/internal/storage"
	"log/slog"
)

// Config adapts the core configuration for the shared cmd runner.
type Config struct {
	Core *coreconfig.Config
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	return c.Core
}

// App owns every long-lived component of the bot.
type App struct {
	cfg       *coreconfig.Config
	db        *sqlx.DB
	users     *storage.Users
	reminders *storage.Reminders
	billing   billing.Client
	catalog   messages.Catalog
	metrics   *metrics.Set
	proc      *dialog.Processor
	ledger    *notify.Ledger
	sched     *notify.Scheduler
	sender    *botSender
}

// New bootstraps the application: database, migrations, billing client,
// Redis ledger, dialog engine, and scheduler.
func New(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	if err := database.RunMigrations(cfg.Database); err != nil {
		return nil, fmt.Errorf("bot: migrations: %w", err)
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("bot: database: %w", err)
	}

	client, err := billing.NewHTTPClient(cfg.Billing)
	if err != nil {
		return nil, fmt.Errorf("bot: billing client: %w", err)
	}

	set := metrics.New()
	catalog := messages.NewCatalog()
	calc := dialog.NewCalculator(set)

	proc, err := dialog.NewProcessor(catalog, []dialog.Transformer{
		dialog.NewLoginTransformer(catalog),
		dialog.NewExitTransformer(catalog),
		dialog.NewNotifyTransformer(catalog),
		dialog.NewSwitchTransformer(catalog, client),
		dialog.NewPromiseTransformer(catalog, client, calc, cfg.Billing.PromiseCeiling),
		dialog.NewPaymentTransformer(catalog, client, calc, cfg.Billing.PaymentCeiling),
		dialog.NewHistoryTransformer(catalog),
	}, dialog.WithMetrics(set))
	if err != nil {
		return nil, fmt.Errorf("bot: dialog engine: %w", err)
	}

	app := &App{
		cfg:       cfg,
		db:        db,
		users:     storage.NewUsers(db),
		reminders: storage.NewReminders(db),
		billing:   client,
		catalog:   catalog,
		metrics:   set,
		proc:      proc,
		sender:    &botSender{metrics: set},
	}

	if cfg.Notify.Enabled {
		ledger, err := notify.NewLedger(ctx, cfg.Redis, cfg.Notify.DedupTTL)
		if err != nil {
			return nil, fmt.Errorf("bot: notify ledger: %w", err)
		}
		app.ledger = ledger
		app.sched = notify.NewScheduler(
			app.users, app.reminders, client, ledger,
			catalog, app.sender, set, cfg.Notify.Interval,
		)
	}

	return app, nil
}

// Close releases resources owned by the App.
func (a *App) Close() error {
	var first error
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			first = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// TelegramRunOptions builds the runtime wiring consumed by cmd.Run.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.cmdStart,
		Description: "What this bot can do",
	})
	reg.RegisterCommand("/login", commands.Command{
		Handler:     a.startDialogHandler(dialog.CommandLogin, false),
		Description: "Link your billing account",
	})
	reg.RegisterCommand("/balance", commands.Command{
		Handler:     a.cmdBalance,
		Description: "Show balance and recommended payment",
	})
	reg.RegisterCommand("/promise", commands.Command{
		Handler:     a.startDialogHandler(dialog.CommandPromisePayment, true),
		Description: "Request a promise payment",
	})
	reg.RegisterCommand("/pay", commands.Command{
		Handler:     a.startDialogHandler(dialog.CommandYookassaPayment, true),
		Description: "Top up online",
	})
	reg.RegisterCommand("/history", commands.Command{
		Handler:     a.startDialogHandler(dialog.CommandPaymentHistory, true),
		Description: "Payment history",
	})
	reg.RegisterCommand("/agreement", commands.Command{
		Handler:     a.startDialogHandler(dialog.CommandSwitchAgreement, true),
		Description: "Switch the active agreement",
	})
	reg.RegisterCommand("/notifications", commands.Command{
		Handler:     a.startDialogHandler(dialog.CommandNotifications, true),
		Description: "Payment reminders on/off",
	})
	reg.RegisterCommand("/exit", commands.Command{
		Handler:     a.startDialogHandler(dialog.CommandExit, true),
		Description: "Log out and forget credentials",
		Hidden:      true,
	})

	reg.SetTextFallback(func(c tele.Context) error {
		return a.send(c, a.catalog.Render(messages.KeyUnknown))
	})

	engine := &dialogEngine{app: a}
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(engine, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(engine, reg, router.CallbackOptions{}))

	onLimited := func(c tele.Context) error {
		return a.send(c, a.catalog.Render(messages.KeyRateLimited))
	}

	middleware.SetMessageSentHook(a.metrics.MessagesSent.Inc)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, onLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.sender.attach(rt.Bot)
			if a.sched != nil {
				go a.sched.Run(ctx)
			}
			if a.cfg.Metrics.Enabled {
				go func() {
					if err := a.metrics.Serve(ctx, a.cfg.Metrics.Listen); err != nil {
						logger.L.Error("metrics listener failed",
							slog.String("component", "metrics"),
							slog.String("err", err.Error()),
						)
					}
				}()
			}
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			middleware.SetMessageSentHook(nil)
			return a.Close()
		},
	}, nil
}
