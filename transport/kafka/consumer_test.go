package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/netrixframework/timeoutd/intake"
	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/metrics"
	"github.com/netrixframework/timeoutd/types"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingHandler counts calls and forwards them to a real intake
type recordingHandler struct {
	in    *intake.Intake
	calls int
	errs  int
}

func (r *recordingHandler) Handle(e *types.Envelope, replyTo types.Address) (*types.Timeout, error) {
	r.calls++
	t, err := r.in.Handle(e, replyTo)
	if err != nil {
		r.errs++
	}
	return t, err
}

func newConsumer() (*Consumer, *recordingHandler, *types.TimeoutStore) {
	logger := log.NewDiscardLogger()
	store := types.NewTimeoutStore()
	h := &recordingHandler{in: intake.NewIntake(store, types.NewManualClock(now), logger)}
	return &Consumer{
		handler:     h,
		BaseService: types.NewBaseService("KafkaConsumer", logger),
	}, h, store
}

func rejected(t *testing.T) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := metrics.RequestsRejected.WithLabelValues("kafka").Write(m); err != nil {
		t.Fatalf("read counter: %s", err)
	}
	return m.GetCounter().GetValue()
}

func message(value string, headers ...kafka.Header) kafka.Message {
	return kafka.Message{Topic: "timeoutd.requests", Offset: 7, Value: []byte(value), Headers: headers}
}

func TestProcess(t *testing.T) {
	replyTo := kafka.Header{Key: ReturnAddressHeader, Value: []byte("kafka://replies")}
	tests := []struct {
		name         string
		msg          kafka.Message
		wantCalls    int
		wantPending  int
		wantRejected float64
	}{
		{
			name:        "valid envelope",
			msg:         message(`{"type":"TimeoutRequest","data":{"correlation_id":42,"timeout":"1s"}}`, replyTo),
			wantCalls:   1,
			wantPending: 1,
		},
		{
			name:         "missing return address",
			msg:          message(`{"type":"TimeoutRequest","data":{"correlation_id":"abc","timeout":0}}`),
			wantRejected: 1,
		},
		{
			name:         "garbage value",
			msg:          message(`not json`, replyTo),
			wantRejected: 1,
		},
		{
			name:         "unexpected type",
			msg:          message(`{"type":"CancelTimeout","data":{"correlation_id":"abc"}}`, replyTo),
			wantCalls:    1,
			wantRejected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, h, store := newConsumer()
			before := rejected(t)

			c.process(tt.msg)

			if h.calls != tt.wantCalls {
				t.Errorf("handler calls: got %d, want %d", h.calls, tt.wantCalls)
			}
			if got := store.Count(); got != tt.wantPending {
				t.Errorf("pending: got %d, want %d", got, tt.wantPending)
			}
			if got := rejected(t) - before; got != tt.wantRejected {
				t.Errorf("rejected: got %g, want %g", got, tt.wantRejected)
			}
		})
	}
}

func TestProcessKeepsReturnAddress(t *testing.T) {
	c, _, store := newConsumer()
	c.process(message(`{"type":"TimeoutRequest","data":{"correlation_id":{"k":"v"},"timeout":0}}`,
		kafka.Header{Key: "other", Value: []byte("x")},
		kafka.Header{Key: ReturnAddressHeader, Value: []byte("redis://replies")},
	))
	pending := store.Snapshot()
	if len(pending) != 1 {
		t.Fatalf("pending: got %d, want 1", len(pending))
	}
	if pending[0].ReplyTo != "redis://replies" || string(pending[0].CorrelationID) != `{"k":"v"}` {
		t.Errorf("timeout: got %+v", pending[0])
	}
}

func TestHeaderValue(t *testing.T) {
	headers := []kafka.Header{
		{Key: "a", Value: []byte("1")},
		{Key: ReturnAddressHeader, Value: []byte("http://caller")},
	}
	if got := headerValue(headers, ReturnAddressHeader); got != "http://caller" {
		t.Errorf("headerValue: got %q", got)
	}
	if got := headerValue(headers, "missing"); got != "" {
		t.Errorf("headerValue missing: got %q", got)
	}
	if got := headerValue(nil, ReturnAddressHeader); got != "" {
		t.Errorf("headerValue nil: got %q", got)
	}
}

type fakeCommitter struct {
	offsets []int64
	ctxErr  error
	hasDue  bool
}

func (f *fakeCommitter) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.ctxErr = ctx.Err()
	_, f.hasDue = ctx.Deadline()
	for _, m := range msgs {
		f.offsets = append(f.offsets, m.Offset)
	}
	return nil
}

func TestCommitOutlivesStop(t *testing.T) {
	c, _, _ := newConsumer()
	fc := &fakeCommitter{}
	c.commits = fc

	// commit takes no context from the run loop, so Stop cannot cancel it
	c.commit(message(`not json`))
	if len(fc.offsets) != 1 || fc.offsets[0] != 7 {
		t.Errorf("committed offsets: got %v, want [7]", fc.offsets)
	}
	if fc.ctxErr != nil || !fc.hasDue {
		t.Errorf("commit context: err %v, deadline %v; want a live context with a deadline", fc.ctxErr, fc.hasDue)
	}
}
