// Package realtime delivers per-user toast events to connected browsers.
// Events travel through a Broker (Redis pub/sub, Postgres LISTEN/NOTIFY or
// in-process) and reach the browser over Server-Sent Events.
package realtime

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

var rlog = logger.With("component", "realtime")

// subscriberBuffer is the per-subscriber channel size. Events beyond it are
// dropped for that subscriber.
const subscriberBuffer = 64

// Broker fans events out to the subscribers of a user.
type Broker interface {
	Publish(ctx context.Context, userID string, e domain.Event) error
	// Subscribe returns a channel of events for userID. The channel is
	// closed once cancel is called or ctx is done.
	Subscribe(ctx context.Context, userID string) (<-chan domain.Event, func())
}

// Channel is the pub/sub channel name for a user.
func Channel(userID string) string {
	return "pmo:events:" + userID
}

// NewBroker picks Redis when a client is given, then Postgres, then the
// in-process broker.
func NewBroker(ctx context.Context, rdb *redis.Client, db *sql.DB, dsn string) (Broker, error) {
	switch {
	case rdb != nil:
		return NewRedisBroker(rdb), nil
	case db != nil && dsn != "":
		b, err := NewPGBroker(ctx, db, dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres broker: %w", err)
		}
		return b, nil
	default:
		return NewLocalBroker(), nil
	}
}
