package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeoutID uniquely identifies a pending timeout inside the store
type TimeoutID string

// Timeout is a pending wake up request. It is immutable once created;
// firing removes it from the store rather than changing it.
type Timeout struct {
	// ID distinguishes timeouts that share a correlation id
	ID TimeoutID `json:"id"`
	// CorrelationID is echoed back unchanged in the reply
	CorrelationID CorrelationID `json:"correlation_id"`
	// ReplyTo is the return address captured by the transport
	ReplyTo Address `json:"reply_to"`
	// DueAt is the absolute time after which the timeout fires
	DueAt time.Time `json:"due_at"`
	// ReceivedAt is the clock reading DueAt was computed from
	ReceivedAt time.Time `json:"received_at"`
}

// NewTimeout creates a timeout due at now+delay
func NewTimeout(correlationID CorrelationID, replyTo Address, now time.Time, delay time.Duration) *Timeout {
	return &Timeout{
		ID:            TimeoutID(uuid.NewString()),
		CorrelationID: correlationID,
		ReplyTo:       replyTo,
		DueAt:         now.Add(delay),
		ReceivedAt:    now,
	}
}

// IsDue returns true if the timeout should fire at now. DueAt equal to now is due.
func (t *Timeout) IsDue(now time.Time) bool {
	return !t.DueAt.After(now)
}

// Reply builds the reply message that is sent back to ReplyTo
func (t *Timeout) Reply() *Reply {
	return &Reply{
		ID:            uuid.NewString(),
		CorrelationID: t.CorrelationID,
		DueAt:         t.DueAt,
	}
}

// Clone returns a copy of the timeout
func (t *Timeout) Clone() *Timeout {
	c := *t
	return &c
}

func (t *Timeout) String() string {
	return fmt.Sprintf("%s -> %s at %s", t.CorrelationID, t.ReplyTo, t.DueAt.Format(time.RFC3339Nano))
}

// Reply is sent to the return address once a timeout is due
type Reply struct {
	ID            string        `json:"id"`
	CorrelationID CorrelationID `json:"correlation_id"`
	DueAt         time.Time     `json:"due_time"`
}

// Marshal encodes the reply as JSON
func (r *Reply) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
