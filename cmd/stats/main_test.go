package stats

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const exposition = `# HELP timeoutd_requests_total The total number of accepted timeout requests
# TYPE timeoutd_requests_total counter
timeoutd_requests_total 7
# HELP timeoutd_reply_errors_total The total number of failed reply sends
# TYPE timeoutd_reply_errors_total counter
timeoutd_reply_errors_total{scheme="http"} 2
timeoutd_reply_errors_total{scheme="kafka"} 1
# HELP timeoutd_pending_timeouts The number of timeouts waiting to become due
# TYPE timeoutd_pending_timeouts gauge
timeoutd_pending_timeouts 4
# HELP go_goroutines Number of goroutines that currently exist.
# TYPE go_goroutines gauge
go_goroutines 12
`

func TestParseMetricsKeepsOwnFamilies(t *testing.T) {
	mfs, err := parseMetrics(strings.NewReader(exposition))
	if err != nil {
		t.Fatalf("parseMetrics: %s", err)
	}
	if _, ok := mfs["go_goroutines"]; ok {
		t.Error("go_goroutines should be filtered out")
	}
	if got := sumFamily(mfs["timeoutd_reply_errors_total"]); got != 3 {
		t.Errorf("reply errors: got %g, want 3", got)
	}
	if got := sumFamily(mfs["timeoutd_missing"]); got != 0 {
		t.Errorf("missing family: got %g, want 0", got)
	}
}

func TestFetchAndPrint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte(exposition))
	}))
	defer srv.Close()

	mfs, err := fetchMetrics(context.Background(), srv.Client(), srv.URL+"/metrics")
	if err != nil {
		t.Fatalf("fetchMetrics: %s", err)
	}
	var out bytes.Buffer
	printFamilies(&out, mfs)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("printed %d lines, want 3:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "pending_timeouts") || !strings.HasSuffix(lines[0], " 4") {
		t.Errorf("first line: got %q", lines[0])
	}
}
