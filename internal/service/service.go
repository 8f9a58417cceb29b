package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjstillabower/pws-history-proxy/internal/client"
	"github.com/kjstillabower/pws-history-proxy/internal/models"
	"github.com/kjstillabower/pws-history-proxy/internal/normalize"
	"github.com/kjstillabower/pws-history-proxy/internal/observability"
	"github.com/kjstillabower/pws-history-proxy/internal/validation"
)

// ErrMissingCredential is returned when no upstream API key is configured.
var ErrMissingCredential = client.ErrMissingAPIKey

// UpstreamError is a non-2xx upstream reply. Status and Body are relayed verbatim.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
}

// Result is a successful upstream reply ready to relay.
type Result struct {
	StatusCode int
	Body       []byte
	ValidJSON  bool
}

// HistoryService validates history requests and relays them to the upstream API.
type HistoryService struct {
	client client.HistoryClient
}

// NewHistoryService creates a HistoryService over the given client.
func NewHistoryService(c client.HistoryClient) *HistoryService {
	return &HistoryService{client: c}
}

// Fetch runs the proxy contract for one request. Checks run in order: credential,
// stationId, date; the first failure returns before any upstream call.
// On success the upstream body is returned untouched; a non-2xx reply is returned
// as *UpstreamError and a network failure wraps client.ErrTransport.
func (s *HistoryService) Fetch(ctx context.Context, stationID, date, units string) (Result, error) {
	logger := observability.LoggerFromContext(ctx)

	if !s.client.HasAPIKey() {
		observability.ProxyRejectionsTotal.WithLabelValues("missing_credential").Inc()
		return Result{}, ErrMissingCredential
	}
	q, err := validation.ValidateHistoryQuery(stationID, date, units)
	if err != nil {
		observability.ProxyRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		return Result{}, err
	}

	resp, err := s.client.FetchHistory(ctx, q)
	if err != nil {
		logger.Error("upstream request failed",
			zap.String("station_id", q.StationID),
			zap.String("date", q.Date),
			zap.Error(err))
		return Result{}, err
	}
	if !resp.OK() {
		logger.Debug("relaying upstream error",
			zap.String("station_id", q.StationID),
			zap.Int("status", resp.StatusCode))
		return Result{}, &UpstreamError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	valid := json.Valid(resp.Body)
	if !valid {
		logger.Debug("upstream body is not valid JSON, forwarding raw",
			zap.String("station_id", q.StationID),
			zap.Int("bytes", len(resp.Body)))
	}
	return Result{StatusCode: resp.StatusCode, Body: resp.Body, ValidJSON: valid}, nil
}

// Observations fetches history and normalizes it into records. A 2xx body that is not
// JSON yields no records. Errors are the same as Fetch.
func (s *HistoryService) Observations(ctx context.Context, stationID, date, units string) ([]models.ObservationRecord, error) {
	res, err := s.Fetch(ctx, stationID, date, units)
	if err != nil {
		return nil, err
	}
	if !res.ValidJSON {
		return []models.ObservationRecord{}, nil
	}
	return normalize.Normalize(res.Body), nil
}

func rejectionReason(err error) string {
	if errors.Is(err, validation.ErrStationIDEmpty) {
		return "station_id"
	}
	return "date"
}

// errorBody is the JSON error shape returned to callers.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse maps an error from Fetch to the HTTP status and body to send.
// Upstream errors relay the upstream status and raw body; everything else is JSON.
func ErrorResponse(err error) (int, []byte) {
	var upErr *UpstreamError
	switch {
	case errors.As(err, &upErr):
		return upErr.StatusCode, upErr.Body
	case errors.Is(err, ErrMissingCredential):
		return http.StatusInternalServerError, mustJSON(errorBody{Error: "missing credential"})
	case validation.IsValidationError(err):
		return http.StatusBadRequest, mustJSON(errorBody{Error: err.Error()})
	default:
		return http.StatusInternalServerError, mustJSON(errorBody{
			Error:   client.ErrTransport.Error(),
			Details: err.Error(),
		})
	}
}

// IsTransportError reports whether err is a network-level failure (as opposed to a
// rejected request or an upstream error reply).
func IsTransportError(err error) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return false
	}
	return err != nil && !errors.Is(err, ErrMissingCredential) && !validation.IsValidationError(err)
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return b
}
