package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/netrixframework/timeoutd/types"
	"github.com/segmentio/kafka-go"
)

// KafkaSink writes replies to the topic named by a `kafka://<topic>` address
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink instantiates KafkaSink. The topic is taken from each address.
func NewKafkaSink(brokers []string) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return &KafkaSink{writer: w}
}

// Send implements ReplySink
func (k *KafkaSink) Send(ctx context.Context, to types.Address, reply *types.Reply) error {
	topic := to.Target()
	if topic == "" {
		return ErrBadAddress
	}
	value, err := reply.Marshal()
	if err != nil {
		return ErrFailedMarshal
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   reply.CorrelationID.Bytes(),
		Value: value,
		Headers: []kafka.Header{
			{Key: "message-type", Value: []byte(types.TimeoutReplyType)},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSendFailed, err)
	}
	return nil
}

// Close implements ReplySink
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
