package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Topic prefixes for status-change fan-out.
const (
	txTopicPrefix   = "payments:tx:"
	rideTopicPrefix = "payments:ride:"
)

// StatusUpdate is the event published on every status transition.
type StatusUpdate struct {
	TransactionID string    `json:"transaction_id"`
	RideID        string    `json:"ride_id,omitempty"`
	Status        string    `json:"status"`
	Success       bool      `json:"success"`
	Timestamp     time.Time `json:"timestamp"`
}

// Broadcaster fans out status-change events over Redis pub/sub. Delivery is
// at-most-once: the transaction store stays the source of truth and clients
// may poll it after a missed broadcast.
type Broadcaster struct {
	client *redis.Client
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(client *redis.Client) *Broadcaster {
	return &Broadcaster{client: client}
}

// Publish sends the update on the transaction topic and, when the payment
// is tied to a ride, on the ride topic as well.
func (b *Broadcaster) Publish(ctx context.Context, update StatusUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, txTopicPrefix+update.TransactionID, data).Err(); err != nil {
		return err
	}
	if update.RideID != "" {
		return b.client.Publish(ctx, rideTopicPrefix+update.RideID, data).Err()
	}
	return nil
}

// SubscribeTransaction subscribes to status updates for one transaction.
func (b *Broadcaster) SubscribeTransaction(ctx context.Context, transactionID string) *redis.PubSub {
	return b.client.Subscribe(ctx, txTopicPrefix+transactionID)
}

// SubscribeRide subscribes to status updates for payments tied to a ride.
func (b *Broadcaster) SubscribeRide(ctx context.Context, rideID string) *redis.PubSub {
	return b.client.Subscribe(ctx, rideTopicPrefix+rideID)
}
