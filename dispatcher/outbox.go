package dispatcher

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/netrixframework/timeoutd/types"
)

const insertOutbox = `
	INSERT INTO outbox (id, event_type, payload, status, correlation_id, producer, created_at, updated_at)
	VALUES ($1, $2, $3, 'new', $4, 'timeoutd', NOW(), NOW())
`

// OutboxSink inserts replies into an outbox table. The address
// `outbox://<event_type>` selects the event type of the row, a relay
// process is expected to publish the rows.
type OutboxSink struct {
	pool *pgxpool.Pool
}

// NewOutboxSink connects to postgres and checks the connection
func NewOutboxSink(ctx context.Context, dsn string) (*OutboxSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &OutboxSink{pool: pool}, nil
}

// Send implements ReplySink
func (o *OutboxSink) Send(ctx context.Context, to types.Address, reply *types.Reply) error {
	eventType := to.Target()
	if eventType == "" {
		return ErrBadAddress
	}
	payload, err := reply.Marshal()
	if err != nil {
		return ErrFailedMarshal
	}
	if _, err := o.pool.Exec(ctx, insertOutbox, reply.ID, eventType, payload, reply.CorrelationID.String()); err != nil {
		return fmt.Errorf("%w: insert outbox event: %s", ErrSendFailed, err)
	}
	return nil
}

// Close implements ReplySink
func (o *OutboxSink) Close() error {
	o.pool.Close()
	return nil
}
