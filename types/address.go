package types

import "strings"

// Supported address schemes
const (
	SchemeHTTP   = "http"
	SchemeHTTPS  = "https"
	SchemeKafka  = "kafka"
	SchemeRedis  = "redis"
	SchemeOutbox = "outbox"
)

// Address is an opaque return address of the form `<scheme>://<target>`.
// An address without a scheme is an http address.
type Address string

// Scheme returns the scheme of the address, `http` if none is present
func (a Address) Scheme() string {
	scheme, _, ok := strings.Cut(string(a), "://")
	if !ok {
		return SchemeHTTP
	}
	return strings.ToLower(scheme)
}

// Target returns the part of the address following the scheme
func (a Address) Target() string {
	_, target, ok := strings.Cut(string(a), "://")
	if !ok {
		return string(a)
	}
	return target
}

// Empty returns true if there is no address
func (a Address) Empty() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a Address) String() string {
	return string(a)
}
