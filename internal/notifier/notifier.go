// Package notifier enqueues post-commit notifications onto a Redis list for
// an external delivery worker to drain. The dispatch engine never delivers
// notifications itself (push/SMS/email are out of scope); it only ever
// enqueues.
package notifier

import (
	"context"
	"encoding/json"
	"time"

	"ride-dispatch-engine/internal/database"
)

// Kind enumerates the notification kinds the engine emits.
type Kind string

const (
	KindTripAssigned      Kind = "TRIP_ASSIGNED"
	KindBookingConfirmed  Kind = "BOOKING_CONFIRMED"
	KindDeliveryConfirmed Kind = "DELIVERY_CONFIRMED"
	KindRetryWaiting      Kind = "RETRY_WAITING"
)

// Notification is the payload pushed onto the outbound queue.
type Notification struct {
	UserRef   string                 `json:"user_ref"`
	Kind      Kind                   `json:"kind"`
	Payload   map[string]interface{} `json:"payload"`
	EnqueuedAt time.Time             `json:"enqueued_at"`
}

const queueKey = "dispatch:notifications"

// Notifier pushes notifications onto a Redis list.
type Notifier struct {
	redis *database.RedisClient
}

// New builds a Notifier backed by the given Redis connection.
func New(redis *database.RedisClient) *Notifier {
	return &Notifier{redis: redis}
}

// Enqueue serializes and LPushes a notification. Errors are returned to the
// caller and never roll back a committed transaction — a lost notification
// is never reason to undo business state; requeststore.WithTransaction
// discards them.
func (n *Notifier) Enqueue(ctx context.Context, userRef string, kind Kind, payload map[string]interface{}) error {
	note := Notification{
		UserRef:    userRef,
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}

	data, err := json.Marshal(note)
	if err != nil {
		return err
	}

	return n.redis.LPush(ctx, queueKey, data)
}
