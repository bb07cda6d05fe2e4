package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/types"
)

var (
	// ErrUnknownScheme is returned when no sink is registered for the address scheme
	ErrUnknownScheme = errors.New("no sink for address scheme")
	// ErrFailedMarshal is returned when the reply could not be marshalled
	ErrFailedMarshal = errors.New("failed to marshal reply")
	// ErrSendFailed is returned when the reply could not be transmitted
	ErrSendFailed = errors.New("sending failed")
	// ErrBadResponse is returned when the destination did not answer with a 2** response
	ErrBadResponse = errors.New("bad response")
	// ErrBadAddress is returned when the address target is empty
	ErrBadAddress = errors.New("bad address")
)

// ReplySink transmits a reply to a destination
type ReplySink interface {
	Send(ctx context.Context, to types.Address, reply *types.Reply) error
	Close() error
}

// Router dispatches replies to the sink registered for the address scheme
type Router struct {
	sinks  map[string]ReplySink
	lock   *sync.Mutex
	logger *log.Logger
}

// NewRouter instantiates an empty Router
func NewRouter(logger *log.Logger) *Router {
	return &Router{
		sinks:  make(map[string]ReplySink),
		lock:   new(sync.Mutex),
		logger: logger.With(log.LogParams{"service": "dispatcher"}),
	}
}

// Register adds sink for the given schemes, replacing any previous registration
func (r *Router) Register(sink ReplySink, schemes ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, s := range schemes {
		r.sinks[s] = sink
	}
}

// Schemes returns the registered schemes
func (r *Router) Schemes() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	schemes := make([]string, 0, len(r.sinks))
	for s := range r.sinks {
		schemes = append(schemes, s)
	}
	return schemes
}

// Send implements ReplySink
func (r *Router) Send(ctx context.Context, to types.Address, reply *types.Reply) error {
	r.lock.Lock()
	sink, ok := r.sinks[to.Scheme()]
	r.lock.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScheme, to.Scheme())
	}
	if to.Target() == "" {
		return ErrBadAddress
	}

	r.logger.With(log.LogParams{
		"correlation_id": reply.CorrelationID,
		"to":             to.String(),
	}).Debug("Dispatching reply")
	return sink.Send(ctx, to, reply)
}

// Close closes every registered sink once
func (r *Router) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	closed := make(map[ReplySink]bool)
	var errs []error
	for _, sink := range r.sinks {
		if closed[sink] {
			continue
		}
		closed[sink] = true
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
