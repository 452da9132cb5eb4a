package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/evolution-fly/flight-service/internal/config"
	"github.com/evolution-fly/flight-service/internal/events"
)

// NotificationService turns lifecycle events into outbound notifications.
// Delivery is stubbed to structured logs; the event contract is the real
// surface.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestReserved, n.handleRequestReserved)
	n.dispatcher.Subscribe(events.EventReminderDue, n.handleReminderDue)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("flight request created",
		zap.String("request_id", event.RequestID),
		zap.Any("payload", event.Payload))
	return nil
}

// handleRequestReserved sends the reservation confirmation to the requester.
func (n *NotificationService) handleRequestReserved(ctx context.Context, event events.Event) error {
	n.logger.Info("flight request reserved",
		zap.String("request_id", event.RequestID),
		zap.Any("payload", event.Payload))
	n.sendEmailStub(ctx, "reservation_confirmation", event)
	return nil
}

// handleReminderDue sends the travel reminder email.
func (n *NotificationService) handleReminderDue(ctx context.Context, event events.Event) error {
	n.sendEmailStub(ctx, "travel_reminder", event)
	return nil
}

func (n *NotificationService) sendEmailStub(_ context.Context, template string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("template", template),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}
