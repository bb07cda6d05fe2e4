package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/netrixframework/timeoutd/types"
	"github.com/puzpuzpuz/xsync/v3"
)

// HTTPSink POSTs replies as json to http(s) addresses
type HTTPSink struct {
	// one keep-alive client per host
	clients *xsync.MapOf[string, *http.Client]
}

// NewHTTPSink instantiates HTTPSink
func NewHTTPSink() *HTTPSink {
	return &HTTPSink{
		clients: xsync.NewMapOf[string, *http.Client](),
	}
}

// Send implements ReplySink
func (h *HTTPSink) Send(ctx context.Context, to types.Address, reply *types.Reply) error {
	target := to.String()
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return ErrBadAddress
	}

	b, err := reply.Marshal()
	if err != nil {
		return ErrFailedMarshal
	}

	client, _ := h.clients.LoadOrCompute(u.Host, func() *http.Client {
		return &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				MaxConnsPerHost:     4,
			},
		}
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewBuffer(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Message-Type", types.TimeoutReplyType)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSendFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", ErrBadResponse, resp.Status)
	}
	return nil
}

// Close implements ReplySink
func (h *HTTPSink) Close() error {
	h.clients.Range(func(host string, c *http.Client) bool {
		c.CloseIdleConnections()
		return true
	})
	h.clients.Clear()
	return nil
}
