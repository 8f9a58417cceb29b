package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/kjstillabower/pws-history-proxy/internal/client"
	"github.com/kjstillabower/pws-history-proxy/internal/models"
	"github.com/kjstillabower/pws-history-proxy/internal/validation"
)

type mockHistoryClient struct {
	hasKey  bool
	resp    *client.UpstreamResponse
	err     error
	calls   int
	queries []models.HistoryQuery
}

func (m *mockHistoryClient) FetchHistory(ctx context.Context, q models.HistoryQuery) (*client.UpstreamResponse, error) {
	m.calls++
	m.queries = append(m.queries, q)
	return m.resp, m.err
}

func (m *mockHistoryClient) HasAPIKey() bool {
	return m.hasKey
}

func okClient(body string) *mockHistoryClient {
	return &mockHistoryClient{
		hasKey: true,
		resp:   &client.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(body)},
	}
}

func TestFetch_Success(t *testing.T) {
	mc := okClient(`{"observations":[]}`)
	svc := NewHistoryService(mc)

	res, err := svc.Fetch(context.Background(), " KSEA1 ", "20240101", "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.StatusCode != http.StatusOK || !res.ValidJSON {
		t.Errorf("Fetch() = %+v, want 200 and valid JSON", res)
	}
	if mc.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", mc.calls)
	}
	want := models.HistoryQuery{StationID: "KSEA1", Date: "20240101", Units: "m"}
	if mc.queries[0] != want {
		t.Errorf("query = %+v, want %+v", mc.queries[0], want)
	}
}

func TestFetch_InvalidJSONPassesThrough(t *testing.T) {
	svc := NewHistoryService(okClient("not json"))

	res, err := svc.Fetch(context.Background(), "KSEA1", "20240101", "m")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.ValidJSON {
		t.Error("ValidJSON = true, want false")
	}
	if string(res.Body) != "not json" {
		t.Errorf("Body = %q, want raw text", res.Body)
	}
}

// TestFetch_CheckOrder verifies credential, stationId and date are checked in that
// order, and none of the failures reach upstream.
func TestFetch_CheckOrder(t *testing.T) {
	tests := []struct {
		name    string
		hasKey  bool
		station string
		date    string
		wantErr error
	}{
		{"no key wins over everything", false, "", "bad", ErrMissingCredential},
		{"station before date", true, "  ", "bad", validation.ErrStationIDEmpty},
		{"bad date", true, "KSEA1", "2024-01-01", validation.ErrDateInvalid},
		{"short date", true, "KSEA1", "2024011", validation.ErrDateInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := okClient("{}")
			mc.hasKey = tt.hasKey
			svc := NewHistoryService(mc)

			_, err := svc.Fetch(context.Background(), tt.station, tt.date, "m")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Fetch() error = %v, want %v", err, tt.wantErr)
			}
			if mc.calls != 0 {
				t.Errorf("upstream calls = %d, want 0", mc.calls)
			}
		})
	}
}

func TestFetch_UpstreamError(t *testing.T) {
	mc := &mockHistoryClient{
		hasKey: true,
		resp:   &client.UpstreamResponse{StatusCode: http.StatusUnauthorized, Body: []byte("Invalid apiKey.")},
	}
	svc := NewHistoryService(mc)

	_, err := svc.Fetch(context.Background(), "KSEA1", "20240101", "m")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Fetch() error = %v, want *UpstreamError", err)
	}
	if upErr.StatusCode != http.StatusUnauthorized || string(upErr.Body) != "Invalid apiKey." {
		t.Errorf("UpstreamError = %d %q", upErr.StatusCode, upErr.Body)
	}
	if mc.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (no retries)", mc.calls)
	}
}

func TestObservations(t *testing.T) {
	svc := NewHistoryService(okClient(`{"observations":[{"obsTimeLocal":"2024-01-01 00:04:56","metric":{"tempAvg":6.4}}]}`))

	records, err := svc.Observations(context.Background(), "KSEA1", "20240101", "m")
	if err != nil {
		t.Fatalf("Observations() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].TempAvg == nil || *records[0].TempAvg != 6.4 {
		t.Errorf("TempAvg = %v, want 6.4", records[0].TempAvg)
	}
}

func TestObservations_InvalidJSONHasNoRecords(t *testing.T) {
	svc := NewHistoryService(okClient(`{"observations":[{"obsTimeLocal":"x"}`))

	records, err := svc.Observations(context.Background(), "KSEA1", "20240101", "m")
	if err != nil {
		t.Fatalf("Observations() error = %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %#v, want empty non-nil slice", records)
	}
}

func TestObservations_PropagatesError(t *testing.T) {
	mc := okClient("{}")
	mc.hasKey = false
	svc := NewHistoryService(mc)

	records, err := svc.Observations(context.Background(), "KSEA1", "20240101", "m")
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Observations() error = %v, want ErrMissingCredential", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
}

func TestErrorResponse(t *testing.T) {
	transportErr := fmt.Errorf("%w: %w", client.ErrTransport, errors.New("dial tcp: connection refused"))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		transport  bool
	}{
		{"missing credential", ErrMissingCredential, 500, `{"error":"missing credential"}`, false},
		{"station", validation.ErrStationIDEmpty, 400, `{"error":"stationId is required"}`, false},
		{"date", validation.ErrDateInvalid, 400, `{"error":"date must be YYYYMMDD"}`, false},
		{"upstream", &UpstreamError{StatusCode: 404, Body: []byte("nope")}, 404, "nope", false},
		{"upstream empty", &UpstreamError{StatusCode: 502}, 502, "", false},
		{"transport", transportErr, 500, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ErrorResponse(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if tt.wantBody != "" || !tt.transport {
				if string(body) != tt.wantBody {
					t.Errorf("body = %s, want %s", body, tt.wantBody)
				}
			}
			if got := IsTransportError(tt.err); got != tt.transport {
				t.Errorf("IsTransportError() = %v, want %v", got, tt.transport)
			}
		})
	}

	_, body := ErrorResponse(transportErr)
	if !strings.Contains(string(body), `"error":"upstream request failed"`) ||
		!strings.Contains(string(body), `"details":"upstream request failed: dial tcp: connection refused"`) {
		t.Errorf("transport body = %s", body)
	}
}
