// Package routeweather is the outbound adapter for the route-weather
// backend. A Client sends one POST per call, bounded by a deadline, and
// returns the backend payload without interpreting it.
package routeweather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/routeweather/internal/core/domain"
	"github.com/samirrijal/routeweather/internal/pkg/departure"
	"github.com/samirrijal/routeweather/internal/pkg/logging"
	"github.com/samirrijal/routeweather/internal/pkg/metrics"
	"github.com/samirrijal/routeweather/internal/pkg/telemetry"
)

const (
	RouteWeatherPath = "/api/route-weather"
	HealthPath       = "/health"

	// DefaultTimeout bounds a whole call, reading the body included.
	DefaultTimeout = 60 * time.Second

	HeaderRequestID = "X-Request-ID"

	maxErrorBody = 1 << 20 // 1 MB
)

// Client talks to the route-weather backend. It is safe for concurrent use;
// every call owns its own deadline.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	location     *time.Location
	logger       *slog.Logger
	newRequestID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout changes the per-call bound. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLocation sets the zone naive departure times are read in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

// WithLogger sets the logger. Without it the logger stored in the call's
// context is used, then slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRequestIDFunc overrides how X-Request-ID values are generated.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) { c.newRequestID = fn }
}

// New creates a Client for the backend at baseURL. An empty baseURL keeps
// paths relative, which only works behind a transport that resolves them.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{},
		timeout:      DefaultTimeout,
		location:     time.Local,
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRouteWeather normalizes departureTime, posts the request and returns
// the decoded payload.
//
// Errors: domain.ErrInvalidFormat before any I/O, domain.ErrTimeout when the
// deadline passes, *domain.RequestFailedError for non-2xx statuses and
// *domain.DecodeError for a 2xx body that is not JSON. Transport errors and
// cancellation of ctx are returned wrapped.
func (c *Client) FetchRouteWeather(ctx context.Context, origin, destination, departureTime string) (domain.RouteWeatherResponse, error) {
	dep, err := departure.Normalize(departureTime, c.location)
	if err != nil {
		metrics.ObserveCall(RouteWeatherPath, metrics.OutcomeInvalidInput, 0)
		return nil, err
	}

	payload, err := encodeRequest(domain.RouteWeatherRequest{
		Origin:        origin,
		Destination:   destination,
		DepartureTime: dep,
	})
	if err != nil {
		return nil, fmt.Errorf("encode route weather request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.begin(reqCtx, telemetry.SpanFetchRouteWeather, http.MethodPost, RouteWeatherPath)
	defer call.span.End()
	call.span.SetAttributes(attribute.Bool(telemetry.AttrHasDeparture, dep != nil))

	req, err := c.newRequest(call.ctx, http.MethodPost, RouteWeatherPath, payload, call.requestID)
	if err != nil {
		return nil, call.end(metrics.OutcomeTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, call.end(classify(ctx, reqCtx, fmt.Errorf("route weather request: %w", err)))
	}
	defer resp.Body.Close()
	call.status = resp.StatusCode

	if !isSuccess(resp.StatusCode) {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		metrics.ObserveResponse(RouteWeatherPath, resp.StatusCode, len(body))
		if readErr != nil && timedOut(ctx, reqCtx) {
			return nil, call.end(metrics.OutcomeTimeout, domain.ErrTimeout)
		}
		return nil, call.end(metrics.OutcomeHTTPError, &domain.RequestFailedError{
			StatusCode: resp.StatusCode,
			Message:    failureMessage(body, readErr, domain.MsgRequestFailed),
			RequestID:  responseRequestID(resp, call.requestID),
		})
	}

	body, err := io.ReadAll(resp.Body)
	metrics.ObserveResponse(RouteWeatherPath, resp.StatusCode, len(body))
	if err != nil {
		return nil, call.end(classify(ctx, reqCtx, fmt.Errorf("read route weather response: %w", err)))
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, call.end(metrics.OutcomeDecodeError, &domain.DecodeError{Err: err})
	}

	call.end(metrics.OutcomeSuccess, nil)
	return domain.RouteWeatherResponse(raw), nil
}

// Health probes the backend liveness endpoint under the same deadline.
func (c *Client) Health(ctx context.Context) (*domain.HealthStatus, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.begin(reqCtx, telemetry.SpanHealth, http.MethodGet, HealthPath)
	defer call.span.End()

	req, err := c.newRequest(call.ctx, http.MethodGet, HealthPath, nil, call.requestID)
	if err != nil {
		return nil, call.end(metrics.OutcomeTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, call.end(classify(ctx, reqCtx, fmt.Errorf("health request: %w", err)))
	}
	defer resp.Body.Close()
	call.status = resp.StatusCode

	if !isSuccess(resp.StatusCode) {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		metrics.ObserveResponse(HealthPath, resp.StatusCode, len(body))
		if readErr != nil && timedOut(ctx, reqCtx) {
			return nil, call.end(metrics.OutcomeTimeout, domain.ErrTimeout)
		}
		return nil, call.end(metrics.OutcomeHTTPError, &domain.RequestFailedError{
			StatusCode: resp.StatusCode,
			Message:    failureMessage(body, readErr, domain.MsgHealthCheckFailed),
			RequestID:  responseRequestID(resp, call.requestID),
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	metrics.ObserveResponse(HealthPath, resp.StatusCode, len(body))
	if err != nil {
		return nil, call.end(classify(ctx, reqCtx, fmt.Errorf("read health response: %w", err)))
	}

	var status domain.HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, call.end(metrics.OutcomeDecodeError, &domain.DecodeError{Err: err})
	}

	call.end(metrics.OutcomeSuccess, nil)
	return &status, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte, requestID string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

// classify maps a failed round trip to an outcome. The deadline set by the
// client becomes ErrTimeout; cancellation by the caller is passed through.
func classify(parent, reqCtx context.Context, err error) (string, error) {
	switch {
	case timedOut(parent, reqCtx):
		return metrics.OutcomeTimeout, domain.ErrTimeout
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled, err
	default:
		return metrics.OutcomeTransport, err
	}
}

// timedOut reports whether reqCtx hit its own deadline while the caller's
// context was still live.
func timedOut(parent, reqCtx context.Context) bool {
	return errors.Is(reqCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// encodeRequest marshals without HTML escaping and without the trailing
// newline json.Encoder adds.
func encodeRequest(r domain.RouteWeatherRequest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// failureMessage extracts a human-readable message from an error body.
// A read or decoding problem yields fallback.
func failureMessage(body []byte, readErr error, fallback string) string {
	if readErr != nil {
		return fallback
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	if msg := detailMessage(payload.Detail); msg != "" {
		return msg
	}
	return fallback
}

// detailMessage accepts a plain string detail or a list of validation
// errors carrying "msg" fields.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		if m := strings.TrimSpace(it.Msg); m != "" {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "; ")
}

func responseRequestID(resp *http.Response, sent string) string {
	if id := resp.Header.Get(HeaderRequestID); id != "" {
		return id
	}
	return sent
}

// observedCall carries the tracing, logging and metrics state of one call.
type observedCall struct {
	ctx       context.Context
	span      trace.Span
	logger    *slog.Logger
	endpoint  string
	requestID string
	start     time.Time
	status    int
}

func (c *Client) begin(ctx context.Context, spanName, method, endpoint string) *observedCall {
	requestID := c.newRequestID()

	logger := c.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(telemetry.AttrRequestID, requestID),
			attribute.String("http.request.method", method),
			attribute.String("url.path", endpoint),
		),
	)

	logger = logger.With("request_id", requestID, "endpoint", endpoint)
	logger.DebugContext(ctx, "dispatching backend call")

	return &observedCall{
		ctx:       ctx,
		span:      span,
		logger:    logger,
		endpoint:  endpoint,
		requestID: requestID,
		start:     time.Now(),
	}
}

// end records the outcome and returns err so callers can `return nil, call.end(...)`.
func (o *observedCall) end(outcome string, err error) error {
	latency := time.Since(o.start)
	metrics.ObserveCall(o.endpoint, outcome, latency)

	o.span.SetAttributes(attribute.String(telemetry.AttrOutcome, outcome))
	if o.status != 0 {
		o.span.SetAttributes(attribute.Int("http.response.status_code", o.status))
	}

	attrs := []any{
		"outcome", outcome,
		"status", o.status,
		"latency", latency.String(),
	}
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.logger.DebugContext(o.ctx, "backend call failed", append(attrs, "error", err)...)
		return err
	}

	o.span.SetStatus(codes.Ok, "")
	o.logger.DebugContext(o.ctx, "backend call finished", attrs...)
	return nil
}
