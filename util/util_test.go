package util

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestCounterConcurrent(t *testing.T) {
	c := NewCounter()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()
	if c.Value() != 800 {
		t.Errorf("Value: got %d, want 800", c.Value())
	}
	if n := c.Next(); n != 800 {
		t.Errorf("Next: got %d, want 800", n)
	}
}

func TestSendMsg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("X-Test") != "yes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(r.Body)
		w.Write(b)
	}))
	defer srv.Close()

	body, err := SendMsg(context.Background(), http.MethodPost, srv.URL, []byte(`{"a":1}`),
		JsonRequest(), WithHeader("X-Test", "yes"))
	if err != nil {
		t.Fatalf("SendMsg: %s", err)
	}
	if body != `{"a":1}` {
		t.Errorf("body: got %q", body)
	}

	_, err = SendMsg(context.Background(), http.MethodPost, srv.URL, []byte(`{}`))
	if !errors.Is(err, ErrBadResponse) {
		t.Errorf("got %v, want ErrBadResponse", err)
	}
}

func TestSendMsgKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := SendMsg(context.Background(), http.MethodPost, addr, []byte(`{}`))
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("got %v, want ErrSendFailed", err)
	}
	if err.Error() == ErrSendFailed.Error() {
		t.Errorf("transport error dropped from %q", err)
	}
}
