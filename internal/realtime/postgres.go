package realtime

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// NotifyChannel is the Postgres LISTEN channel shared by all users.
const NotifyChannel = "pmo_events"

type envelope struct {
	UserID string       `json:"user_id"`
	Event  domain.Event `json:"event"`
}

// PGBroker uses Postgres LISTEN/NOTIFY when Redis is not configured. A
// single listener per process feeds a LocalBroker.
type PGBroker struct {
	db       *sql.DB
	local    *LocalBroker
	listener *pq.Listener
}

// NewPGBroker starts listening on NotifyChannel. The listener stops when ctx
// is done.
func NewPGBroker(ctx context.Context, db *sql.DB, dsn string) (*PGBroker, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			rlog.Warn("listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}
	b := newPGBroker(db)
	b.listener = listener
	go b.run(ctx)
	rlog.Info("listening on postgres channel", "channel", NotifyChannel)
	return b, nil
}

func newPGBroker(db *sql.DB) *PGBroker {
	return &PGBroker{db: db, local: NewLocalBroker()}
}

func (b *PGBroker) run(ctx context.Context) {
	defer b.listener.Close()
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-b.listener.Notify:
			if n == nil {
				// reconnected; notifications sent meanwhile are lost
				continue
			}
			b.dispatch(ctx, n.Extra)
		case <-ping.C:
			go b.listener.Ping()
		}
	}
}

func (b *PGBroker) dispatch(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		rlog.Warn("bad notification", "error", err)
		return
	}
	b.local.Publish(ctx, env.UserID, env.Event)
}

func (b *PGBroker) Publish(ctx context.Context, userID string, e domain.Event) error {
	payload, err := json.Marshal(envelope{UserID: userID, Event: e})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, string(payload)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (b *PGBroker) Subscribe(ctx context.Context, userID string) (<-chan domain.Event, func()) {
	return b.local.Subscribe(ctx, userID)
}
