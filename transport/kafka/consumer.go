// Package kafka feeds timeout requests read from a kafka topic into intake.
package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/netrixframework/timeoutd/config"
	"github.com/netrixframework/timeoutd/intake"
	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/metrics"
	"github.com/netrixframework/timeoutd/types"
	"github.com/segmentio/kafka-go"
)

// ReturnAddressHeader is the message header carrying the reply address
const ReturnAddressHeader = "return-address"

// CommitTimeout bounds the offset commit of a processed message
const CommitTimeout = 5 * time.Second

// Handler submits a decoded envelope, implemented by intake.Intake
type Handler interface {
	Handle(e *types.Envelope, replyTo types.Address) (*types.Timeout, error)
}

// committer is the part of kafka.Reader that acknowledges offsets
type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer reads envelopes from the input topic. Malformed messages are
// logged and committed so that they are not redelivered.
type Consumer struct {
	reader  *kafka.Reader
	commits committer
	handler Handler

	cancel context.CancelFunc
	done   chan struct{}
	lock   *sync.Mutex

	*types.BaseService
}

// NewConsumer instantiates Consumer for the configured input topic
func NewConsumer(cfg config.KafkaConfig, handler Handler, logger *log.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.InputTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  1 * time.Second,
		Dialer: &kafka.Dialer{
			Timeout: 10 * time.Second,
		},
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{
		reader:      r,
		commits:     r,
		handler:     handler,
		lock:        new(sync.Mutex),
		BaseService: types.NewBaseService("KafkaConsumer", logger),
	}
}

// Start implements Service
func (c *Consumer) Start() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.StartRunning() {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
	return nil
}

// Stop implements Service. The reader is closed and cannot be restarted.
func (c *Consumer) Stop() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.StopRunning() {
		return nil
	}
	c.cancel()
	<-c.done
	return c.reader.Close()
}

func (c *Consumer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	c.Logger.With(log.LogParams{"topic": c.reader.Config().Topic}).Info("Kafka consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			c.Logger.With(log.LogParams{"error": err}).Error("Failed to fetch message")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.process(msg)
		c.commit(msg)
	}
}

// commit is not bound to the run context: once a message was handed to
// intake it must be committed even if Stop is in progress, or it fires twice.
func (c *Consumer) commit(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), CommitTimeout)
	defer cancel()
	if err := c.commits.CommitMessages(ctx, msg); err != nil {
		c.Logger.With(log.LogParams{
			"offset": msg.Offset,
			"error":  err,
		}).Error("Failed to commit message")
	}
}

func (c *Consumer) process(msg kafka.Message) {
	logger := c.Logger.With(log.LogParams{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	replyTo := types.Address(headerValue(msg.Headers, ReturnAddressHeader))
	if replyTo.Empty() {
		metrics.RequestsRejected.WithLabelValues("kafka").Inc()
		logger.With(log.LogParams{"error": intake.ErrNoReturnAddress}).Warn("Skipping message")
		return
	}
	e, err := types.ParseEnvelope(msg.Value)
	if err == nil {
		_, err = c.handler.Handle(e, replyTo)
	}
	if err != nil {
		metrics.RequestsRejected.WithLabelValues("kafka").Inc()
		logger.With(log.LogParams{"error": err}).Warn("Skipping message")
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
