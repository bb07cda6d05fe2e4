// Package sweeper periodically extracts due timeouts from the store and
// hands their replies to a sink.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/netrixframework/timeoutd/dispatcher"
	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/metrics"
	"github.com/netrixframework/timeoutd/stats"
	"github.com/netrixframework/timeoutd/types"
	"github.com/netrixframework/timeoutd/util"
)

// DefaultInterval is the sweep period used when none is configured
const DefaultInterval = 300 * time.Millisecond

// SweepResult counts what happened in one sweep
type SweepResult struct {
	Due    int
	Sent   int
	Failed int
	// Skipped is set when another sweep was still running
	Skipped bool
}

// Sweeper drives periodic due extraction. Sweeps never overlap: ticks that
// arrive while a sweep is running are dropped.
type Sweeper struct {
	store        *types.TimeoutStore
	sink         dispatcher.ReplySink
	clock        types.Clock
	interval     time.Duration
	replyTimeout time.Duration
	lateness     *stats.Window
	sweeps       *util.Counter
	sweeping     *sync.Mutex

	// serializes Start and Stop
	lifecycle *sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	*types.BaseService
}

// Option configures a Sweeper
type Option func(*Sweeper)

// WithInterval sets the sweep period
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithReplyTimeout bounds each reply send
func WithReplyTimeout(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.replyTimeout = d
		}
	}
}

// WithLateness records the lateness of every sent reply in w
func WithLateness(w *stats.Window) Option {
	return func(s *Sweeper) {
		s.lateness = w
	}
}

// NewSweeper instantiates a stopped Sweeper
func NewSweeper(store *types.TimeoutStore, sink dispatcher.ReplySink, clock types.Clock, logger *log.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:        store,
		sink:         sink,
		clock:        clock,
		interval:     DefaultInterval,
		replyTimeout: 5 * time.Second,
		sweeps:       util.NewCounter(),
		sweeping:     new(sync.Mutex),
		lifecycle:    new(sync.Mutex),
		BaseService:  types.NewBaseService("Sweeper", logger),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Interval returns the sweep period
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Start begins sweeping every interval. It is a no-op if already running.
func (s *Sweeper) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.StartRunning() {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.Logger.With(log.LogParams{"interval": s.interval.String()}).Info("Starting inner timer")
	go s.loop(ctx, s.done)
	return nil
}

// Stop stops sweeping. When Stop returns no new sweep will begin; a sweep
// already in progress is allowed to finish its sends first.
// It is a no-op if not running.
func (s *Sweeper) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.StopRunning() {
		return nil
	}
	s.Logger.Info("Stopping inner timer")
	s.cancel()
	<-s.done
	return nil
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Stop may have raced with the tick
			if ctx.Err() != nil {
				return
			}
			if _, err := s.Sweep(context.Background()); err != nil {
				s.Logger.With(log.LogParams{"error": err}).Error("Sweep aborted")
			}
		}
	}
}

// Sweep runs one extraction and sends a reply for every due timeout.
// A failed send is logged and counted; the remaining replies are still sent
// and the failed timeout is not put back. An error is returned only when the
// store reports a broken invariant. If another sweep is running, Sweep
// returns immediately with Skipped set.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	if !s.sweeping.TryLock() {
		return SweepResult{Skipped: true}, nil
	}
	defer s.sweeping.Unlock()

	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	now := s.clock.Now()
	due, err := s.store.ExtractDue(now)
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Due: len(due)}
	if len(due) == 0 {
		return result, nil
	}
	metrics.Pending.Sub(float64(len(due)))

	logger := s.Logger.With(log.LogParams{
		"sweep": s.sweeps.Next(),
		"due":   len(due),
	})
	for _, t := range due {
		if err := s.send(ctx, t); err != nil {
			result.Failed++
			metrics.ReplyErrors.WithLabelValues(t.ReplyTo.Scheme()).Inc()
			logger.With(log.LogParams{
				"timeout_id":     t.ID,
				"correlation_id": t.CorrelationID,
				"reply_to":       t.ReplyTo.String(),
				"error":          err,
			}).Error("Failed to send timeout reply")
			continue
		}
		result.Sent++
		lateness := s.clock.Now().Sub(t.DueAt)
		metrics.RepliesSent.Inc()
		metrics.ReplyLateness.Observe(lateness.Seconds())
		if s.lateness != nil {
			s.lateness.Record(lateness)
		}
		logger.With(log.LogParams{
			"correlation_id": t.CorrelationID,
			"reply_to":       t.ReplyTo.String(),
		}).Info("Timeout!")
	}
	return result, nil
}

func (s *Sweeper) send(ctx context.Context, t *types.Timeout) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("reply sink panicked")
		}
	}()
	sendCtx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()
	return s.sink.Send(sendCtx, t.ReplyTo, t.Reply())
}
