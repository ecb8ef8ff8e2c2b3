package service

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// EventPublisher is satisfied by rabbitmq.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, routingKey string, payload interface{}) error
}

type Event struct {
	EntrepriseID int64       `json:"entreprise_id"`
	Type         string      `json:"type"`
	Data         interface{} `json:"data"`
}

// publish is called after commit. A failed publish never fails the operation.
func (svc *GestiohubService) publish(ctx context.Context, entrepriseID int64, eventType string, data interface{}) {
	if svc.Events == nil {
		return
	}
	err := svc.Events.PublishEvent(ctx, eventType, &Event{
		EntrepriseID: entrepriseID,
		Type:         eventType,
		Data:         data,
	})
	if err != nil {
		svc.Logger.Errorf("Failed to publish %s event for entreprise %d: %v", eventType, entrepriseID, err)
		sentry.CaptureException(err)
	}
}
