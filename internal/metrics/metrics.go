// Package metrics exposes Prometheus collectors for the dialog engine and
// an optional HTTP listener for scraping.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lanbilling/lanbot/core/logger"
	"log/slog"
)

// Set bundles all collectors registered by the bot.
type Set struct {
	registry *prometheus.Registry

	// SessionsActive tracks currently registered dialog sessions.
	SessionsActive prometheus.Gauge
	// Transitions counts dialog transitions by command and outcome.
	Transitions *prometheus.CounterVec
	// CalculatorRejections counts rejected amount changes by bound.
	CalculatorRejections *prometheus.CounterVec
	// NotificationsSent counts delivered payment reminders.
	NotificationsSent prometheus.Counter
	// MessagesSent counts outbound Telegram messages.
	MessagesSent prometheus.Counter
}

// New registers and returns the collector set.
func New() *Set {
	reg := prometheus.NewRegistry()
	s := &Set{
		registry: reg,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lanbot_dialog_sessions_active",
			Help: "Number of users with an in-progress dialog session.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanbot_dialog_transitions_total",
			Help: "Dialog transitions by command and outcome.",
		}, []string{"command", "outcome"}),
		CalculatorRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanbot_calculator_rejections_total",
			Help: "Amount changes rejected by the calculator, by violated bound.",
		}, []string{"bound"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lanbot_notifications_sent_total",
			Help: "Payment reminders delivered by the scheduler.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lanbot_messages_sent_total",
			Help: "Outbound Telegram messages.",
		}),
	}
	reg.MustRegister(
		s.SessionsActive,
		s.Transitions,
		s.CalculatorRejections,
		s.NotificationsSent,
		s.MessagesSent,
	)
	return s
}

// Handler returns the scrape handler for the set's registry.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics listener until ctx is cancelled.
func (s *Set) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.L.Info("metrics listener started",
		slog.String("component", "metrics"),
		slog.String("event", "listen"),
		slog.String("listen", addr),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
