package types

import (
	"encoding/json"
	"errors"
)

// ErrBadCorrelationID is returned for a correlation id that is not a json value
var ErrBadCorrelationID = errors.New("correlation id is not valid json")

// CorrelationID is the caller's opaque token. It holds the json value exactly
// as it was received (string, number, object...) and is echoed back unchanged.
// The zero value encodes as null.
type CorrelationID string

// StringID returns the CorrelationID of the json string s
func StringID(s string) CorrelationID {
	b, _ := json.Marshal(s)
	return CorrelationID(b)
}

// MarshalJSON implements json.Marshaler
func (c CorrelationID) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("null"), nil
	}
	return []byte(c), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping the raw bytes
func (c *CorrelationID) UnmarshalJSON(b []byte) error {
	*c = CorrelationID(b)
	return nil
}

// Valid returns true if the id is empty or a single json value
func (c CorrelationID) Valid() bool {
	return c == "" || json.Valid([]byte(c))
}

// Bytes returns the raw json of the id
func (c CorrelationID) Bytes() []byte {
	if c == "" {
		return []byte("null")
	}
	return []byte(c)
}

func (c CorrelationID) String() string {
	return string(c.Bytes())
}
