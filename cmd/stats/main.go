package stats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

const metricPrefix = "timeoutd_"

// StatsCmd scrapes the metrics of a running service and prints the timeoutd families
func StatsCmd() *cobra.Command {
	var serverAddr string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the counters of a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			url := serverAddr + "/metrics"
			if !strings.Contains(url, "://") {
				url = "http://" + url
			}
			mfs, err := fetchMetrics(ctx, http.DefaultClient, url)
			if err != nil {
				return err
			}
			printFamilies(cmd.OutOrStdout(), mfs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&serverAddr, "server", "s", "localhost:7074", "Address of the timeout service")
	return cmd
}

func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a text exposition, keeping only the timeoutd families
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	for name := range mfs {
		if !strings.HasPrefix(name, metricPrefix) {
			delete(mfs, name)
		}
	}
	return mfs, nil
}

// sumFamily adds up the counter, gauge and untyped values of a family.
// Histograms contribute their sample count.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		case m.Histogram != nil:
			total += float64(m.Histogram.GetSampleCount())
		}
	}
	return total
}

func printFamilies(w io.Writer, mfs map[string]*dto.MetricFamily) {
	names := make([]string, 0, len(mfs))
	for name := range mfs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%-40s %g\n", strings.TrimPrefix(name, metricPrefix), sumFamily(mfs[name]))
	}
}
