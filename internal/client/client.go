package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/pws-history-proxy/internal/models"
	"github.com/kjstillabower/pws-history-proxy/internal/observability"
)

// DefaultAPIURL is the Weather.com PWS history endpoint.
const DefaultAPIURL = "https://api.weather.com/v2/pws/history/all"

// HistoryClient fetches one station-day of PWS history from the upstream API.
type HistoryClient interface {
	FetchHistory(ctx context.Context, q models.HistoryQuery) (*UpstreamResponse, error)
	HasAPIKey() bool
}

var (
	ErrMissingAPIKey = errors.New("missing credential")
	ErrTransport     = errors.New("upstream request failed")
)

// UpstreamResponse is the raw upstream reply. The body is opaque: it is relayed,
// never rewritten.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the upstream status is in the 2xx range.
func (r *UpstreamResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// WundergroundClient calls the Weather.com PWS history API. Each FetchHistory is a
// single GET; there are no retries.
type WundergroundClient struct {
	apiKey string
	apiURL *url.URL
	client *http.Client
}

// NewWundergroundClient creates a client for apiURL. An empty apiKey is accepted so the
// service can start without one; FetchHistory then fails with ErrMissingAPIKey.
// timeout 0 leaves the http.Client default (no client-side timeout).
func NewWundergroundClient(apiKey, apiURL string, timeout time.Duration) (*WundergroundClient, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", apiURL)
	}

	return &WundergroundClient{
		apiKey: apiKey,
		apiURL: u,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// HasAPIKey reports whether a credential is configured.
func (c *WundergroundClient) HasAPIKey() bool {
	return c.apiKey != ""
}

// FetchHistory issues one GET for q and returns the upstream status and body as-is,
// whatever the status. Network and body-read failures wrap ErrTransport.
func (c *WundergroundClient) FetchHistory(ctx context.Context, q models.HistoryQuery) (*UpstreamResponse, error) {
	if !c.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}
	start := time.Now()

	req, err := c.buildRequest(ctx, q)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}

	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		observability.UpstreamDuration.WithLabelValues("error").Observe(duration)
		observability.UpstreamErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return nil, fmt.Errorf("%w: %w", ErrTransport, redactKey(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		observability.UpstreamErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return nil, fmt.Errorf("%w: read response body: %w", ErrTransport, err)
	}

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(status).Inc()
	observability.UpstreamDuration.WithLabelValues(status).Observe(duration)

	return &UpstreamResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *WundergroundClient) buildRequest(ctx context.Context, q models.HistoryQuery) (*http.Request, error) {
	u := *c.apiURL
	params := u.Query()
	params.Set("stationId", q.StationID)
	params.Set("format", "json")
	params.Set("date", q.Date)
	params.Set("units", q.Units)
	params.Set("apiKey", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// redactKey strips the request URL from *url.Error so the credential in the query
// string never reaches logs or the error details sent to browsers.
func redactKey(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
