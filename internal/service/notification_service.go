package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kuiporro/pgf-fleet-workshop/internal/config"
	"github.com/kuiporro/pgf-fleet-workshop/internal/events"
	"github.com/kuiporro/pgf-fleet-workshop/internal/workshop"
)

// NotificationService reacts to engine events: it keeps the timeline cache
// honest and hands alerts to the delivery collaborator. Delivery guarantees
// are that collaborator's concern, not this service's.
type NotificationService struct {
	dispatcher events.Dispatcher
	timelines  *workshop.TimelineAggregator
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, timelines *workshop.TimelineAggregator, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		timelines:  timelines,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventWorkOrderCreated, n.handleMutation)
	n.dispatcher.Subscribe(events.EventWorkOrderStatusChanged, n.handleMutation)
	n.dispatcher.Subscribe(events.EventWorkOrderPaused, n.handleMutation)
	n.dispatcher.Subscribe(events.EventWorkOrderResumed, n.handleMutation)
	n.dispatcher.Subscribe(events.EventWorkOrderQAReviewed, n.handleMutation)
	n.dispatcher.Subscribe(events.EventWorkOrderPriorityChanged, n.handleMutation)
}

func (n *NotificationService) handleMutation(ctx context.Context, event events.Event) error {
	n.logger.Info("work order event",
		zap.String("type", string(event.Type)),
		zap.String("work_order_id", event.WorkOrderID),
		zap.String("actor", event.Actor.IdentityID),
		zap.Any("payload", event.Payload),
	)
	if n.timelines != nil {
		n.timelines.InvalidateCache(ctx, event.WorkOrderID)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if n.cfg.WebhookURL == "" {
		return
	}
	// Delivery is owned by the notification collaborator; this stub only
	// records what would be handed off.
	n.logger.Debug("webhook notification queued",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
	)
}
