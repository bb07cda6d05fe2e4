// Package intake turns inbound timeout requests into pending timeouts.
package intake

import (
	"errors"
	"fmt"
	"time"

	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/metrics"
	"github.com/netrixframework/timeoutd/types"
)

// ErrNoReturnAddress is returned when the transport could not determine where to reply
var ErrNoReturnAddress = errors.New("missing return address")

// Intake converts requests into timeouts and inserts them into the store
type Intake struct {
	store  *types.TimeoutStore
	clock  types.Clock
	logger *log.Logger
}

// NewIntake instantiates Intake
func NewIntake(store *types.TimeoutStore, clock types.Clock, logger *log.Logger) *Intake {
	return &Intake{
		store:  store,
		clock:  clock,
		logger: logger.With(log.LogParams{"service": "intake"}),
	}
}

// Submit schedules a reply to replyTo once delay has elapsed. A zero delay
// makes the timeout due on the next sweep.
func (i *Intake) Submit(correlationID types.CorrelationID, replyTo types.Address, delay time.Duration) (*types.Timeout, error) {
	if replyTo.Empty() {
		return nil, ErrNoReturnAddress
	}
	if !correlationID.Valid() {
		return nil, fmt.Errorf("%w: %s", types.ErrUnexpectedMessage, types.ErrBadCorrelationID)
	}
	if delay < 0 {
		return nil, types.ErrNegativeDelay
	}

	t := types.NewTimeout(correlationID, replyTo, i.clock.Now(), delay)
	if err := i.store.Insert(t); err != nil {
		i.logger.With(log.LogParams{
			"timeout_id": t.ID,
			"error":      err,
		}).Error("Failed to insert timeout")
		return nil, err
	}
	metrics.RequestsTotal.Inc()
	metrics.Pending.Inc()

	i.logger.With(log.LogParams{
		"timeout_id":     t.ID,
		"correlation_id": t.CorrelationID,
		"reply_to":       t.ReplyTo.String(),
		"due_at":         t.DueAt,
	}).Info("Added new timeout")
	return t, nil
}

// Handle decodes an envelope received by a transport and submits it.
// Envelopes that do not carry a TimeoutRequest are reported with
// types.ErrUnexpectedMessage and leave the store untouched.
func (i *Intake) Handle(e *types.Envelope, replyTo types.Address) (*types.Timeout, error) {
	req, err := e.Decode()
	if err != nil {
		i.logger.With(log.LogParams{
			"type":  e.Type,
			"error": err,
		}).Warn("Rejected inbound message")
		return nil, fmt.Errorf("handle %q: %w", e.Type, err)
	}
	return i.Submit(req.CorrelationID, replyTo, time.Duration(req.Timeout))
}
