package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/evolution-fly/flight-service/internal/config"
	"github.com/evolution-fly/flight-service/internal/service"
)

// ReminderWorker periodically scans for reserved requests whose travel date
// is the configured number of days away and emits reminder events. The
// at-most-once guarantee lives in the repository's conditional flag update,
// so overlapping scans are harmless.
type ReminderWorker struct {
	requests *service.FlightRequestService
	cfg      config.NotificationConfig
	logger   *zap.Logger
}

// NewReminderWorker builds the worker.
func NewReminderWorker(requests *service.FlightRequestService, cfg config.NotificationConfig, logger *zap.Logger) *ReminderWorker {
	return &ReminderWorker{requests: requests, cfg: cfg, logger: logger}
}

// Run scans on an interval until the context is cancelled. An immediate scan
// happens on startup so restarts do not delay due reminders by a full tick.
func (w *ReminderWorker) Run(ctx context.Context) {
	w.scan(ctx)

	ticker := time.NewTicker(w.cfg.ReminderInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *ReminderWorker) scan(ctx context.Context) {
	sent, err := w.requests.SendDueReminders(ctx, w.cfg.ReminderDaysBefore)
	if err != nil {
		w.logger.Warn("reminder scan failed", zap.Error(err))
		return
	}
	if sent > 0 {
		w.logger.Info("travel reminders queued", zap.Int("count", sent))
	}
}
