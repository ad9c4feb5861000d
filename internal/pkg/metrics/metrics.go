package metrics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Outcome labels for client calls.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeHTTPError    = "http_error"
	OutcomeTimeout      = "timeout"
	OutcomeDecodeError  = "decode_error"
	OutcomeTransport    = "transport_error"
	OutcomeCanceled     = "canceled"
)

var (
	// Route-weather client metrics
	ClientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routeweather",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total route-weather calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	ClientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routeweather",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Route-weather call latency in seconds, including reading the body",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"endpoint"})

	ClientResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routeweather",
		Subsystem: "client",
		Name:      "response_size_bytes",
		Help:      "Route-weather response body size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"endpoint"})

	ClientResponseStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routeweather",
		Subsystem: "client",
		Name:      "response_status_total",
		Help:      "HTTP status codes returned by the backend",
	}, []string{"endpoint", "status"})
)

// ObserveCall records one finished client call. A zero duration means no
// request went out and only the counter is touched.
func ObserveCall(endpoint, outcome string, duration time.Duration) {
	ClientRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	if duration > 0 {
		ClientRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	}
}

// ObserveResponse records the status and body size of a received response.
func ObserveResponse(endpoint string, status, size int) {
	ClientResponseStatus.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	ClientResponseSize.WithLabelValues(endpoint).Observe(float64(size))
}

// Dump writes every metric family of g in the text exposition format.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
