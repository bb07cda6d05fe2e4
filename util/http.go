package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrSendFailed is returned when the request could not be created or sent
	ErrSendFailed = errors.New("sending failed")
	// ErrResponseReadFail is returned when the response to the request could not be read
	ErrResponseReadFail = errors.New("failed to read response")
	// ErrBadResponse is returned when the request did not receive a 2** response
	ErrBadResponse = errors.New("bad response")
)

// RequestOption can be used to modify the request that is to be sent
type RequestOption func(*http.Request)

// JsonRequest sets the content type to application/json
func JsonRequest() RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", "application/json")
	}
}

// WithHeader sets a request header
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// SendMsg creates and sends a HTTP request to the specified address and
// returns the response body. Addresses without a scheme are sent over http.
func SendMsg(ctx context.Context, method, toAddr string, msg []byte, options ...RequestOption) (string, error) {
	if !strings.Contains(toAddr, "://") {
		toAddr = "http://" + toAddr
	}
	req, err := http.NewRequestWithContext(ctx, method, toAddr, bytes.NewBuffer(msg))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSendFailed, err)
	}

	for _, o := range options {
		o(req)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSendFailed, err)
	}
	defer resp.Body.Close()
	bodyB, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrResponseReadFail, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(bodyB), ErrBadResponse
	}
	return string(bodyB), nil
}
