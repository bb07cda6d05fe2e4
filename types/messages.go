package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnexpectedMessage is returned for envelopes of unknown type or shape
	ErrUnexpectedMessage = errors.New("unexpected message")
	// ErrNegativeDelay is returned when a request asks for a negative timeout
	ErrNegativeDelay = errors.New("negative timeout")
	// ErrNoData is returned when an envelope carries no payload
	ErrNoData = errors.New("no data in message")
)

// TimeoutRequestType is the envelope tag of a TimeoutRequest
const TimeoutRequestType = "TimeoutRequest"

// TimeoutReplyType is the message type attached to replies by transports that carry one
const TimeoutReplyType = "TimeoutReply"

// Envelope is the wire representation of an inbound message. It is decoded
// once at the transport boundary into a typed message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Delay is a duration that unmarshals from either a duration string ("1.5s")
// or an integer number of milliseconds
type Delay time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Delay) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Delay(dur)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Delay(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Delay) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// TimeoutRequest asks for a reply after Timeout has elapsed
type TimeoutRequest struct {
	CorrelationID CorrelationID `json:"correlation_id"`
	Timeout       Delay         `json:"timeout"`
}

// Validate checks the request fields that intake relies on
func (r *TimeoutRequest) Validate() error {
	if r.Timeout < 0 {
		return ErrNegativeDelay
	}
	return nil
}

// NewEnvelope wraps a request in an envelope
func NewEnvelope(req *TimeoutRequest) (*Envelope, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: TimeoutRequestType, Data: data}, nil
}

// ParseEnvelope decodes raw bytes into an envelope
func ParseEnvelope(b []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, err)
	}
	return &e, nil
}

// Decode returns the typed message carried by the envelope. Only
// TimeoutRequest is understood; anything else is ErrUnexpectedMessage.
func (e *Envelope) Decode() (*TimeoutRequest, error) {
	if e.Type != TimeoutRequestType {
		return nil, fmt.Errorf("%w: type %q", ErrUnexpectedMessage, e.Type)
	}
	if len(e.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, ErrNoData)
	}
	var req TimeoutRequest
	if err := json.Unmarshal(e.Data, &req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}
