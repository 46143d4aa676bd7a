package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Routing keys published on the reservation exchange.
const (
	RKReservationCreated   = "reservation.created"
	RKReservationJoined    = "reservation.joined"
	RKReservationLeft      = "reservation.left"
	RKReservationCancelled = "reservation.cancelled"
	RKReservationReset     = "reservation.reset"
)

// Envelope wraps every payload with an id for consumer-side dedup.
type Envelope struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Version    int             `json:"version"`
	OccurredAt int64           `json:"occurred_at"` // unix seconds
	Data       json.RawMessage `json:"data"`
}

type ReservationCreated struct {
	ReservationID string `json:"reservation_id"`
	Owner         string `json:"owner"`
	Level         string `json:"level"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Nickname      string `json:"puni"`
}

// ParticipantChanged is the payload of joined and left.
type ParticipantChanged struct {
	ReservationID string `json:"reservation_id"`
	Owner         string `json:"owner"`
	UserID        string `json:"user_id"`
	Participants  int    `json:"participants"`
}

type ReservationCancelled struct {
	ReservationID string `json:"reservation_id"`
	Owner         string `json:"owner"`
}

type ReservationsReset struct {
	Target  string   `json:"target"`
	Removed []string `json:"removed"`
}

// Wrap builds an envelope around data for routing key key.
func Wrap(key string, data any, now time.Time) (Envelope, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", key, err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Event:      key,
		Version:    1,
		OccurredAt: now.Unix(),
		Data:       b,
	}, nil
}

func MustUnmarshal[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}

// Decode unpacks an envelope body and its typed payload.
func Decode[T any](body []byte) (Envelope, T, error) {
	env, err := MustUnmarshal[Envelope](body)
	if err != nil {
		var zero T
		return env, zero, err
	}
	data, err := MustUnmarshal[T](env.Data)
	return env, data, err
}
