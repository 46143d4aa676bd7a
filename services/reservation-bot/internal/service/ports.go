package service

import (
	"context"

	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
)

// Actor is the platform user performing an operation.
type Actor struct {
	ID  string
	Tag string // display handle used in notifications
}

// DirectMessage is a private notification. CancelFor, when set, attaches a
// cancel control for that reservation.
type DirectMessage struct {
	Content   string
	CancelFor string
}

// Dispatcher is the messaging platform as seen by the lifecycle handler.
type Dispatcher interface {
	// Announce posts the public reservation message and returns its reference.
	Announce(ctx context.Context, r *domain.Reservation) (string, error)
	// Withdraw deletes a previously announced message.
	Withdraw(ctx context.Context, messageRef string) error
	DirectMessage(ctx context.Context, userID string, dm DirectMessage) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}
