package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/pws-history-proxy/internal/lifecycle"
	"github.com/kjstillabower/pws-history-proxy/internal/observability"
	"github.com/kjstillabower/pws-history-proxy/internal/render"
	"github.com/kjstillabower/pws-history-proxy/internal/service"
	"github.com/kjstillabower/pws-history-proxy/internal/validation"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	history *service.HistoryService
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler returns a new Handler.
func NewHandler(history *service.HistoryService, logger *zap.Logger) *Handler {
	return &Handler{
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// GetHealth handles GET /health. Always 200.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetReady handles GET /ready. 503 once shutdown has started.
func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	if lifecycle.IsShuttingDown() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetHistory handles GET /api/wu/history. The upstream status and body are relayed
// as-is with a JSON content type.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.history.Fetch(r.Context(), q.Get("stationId"), q.Get("date"), q.Get("units"))
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeRaw(w, res.StatusCode, "application/json", res.Body)
}

// GetHistoryPage handles GET /history: the form, and the rendered table once a
// station and date were submitted.
func (h *Handler) GetHistoryPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("stationId") && !q.Has("date") {
		data := render.NewPageData("", h.now().Format("20060102"), "m")
		h.writePage(w, r, http.StatusOK, data)
		return
	}

	date := validation.DateFromInput(q.Get("date"))
	data := render.NewPageData(q.Get("stationId"), date, q.Get("units"))
	records, err := h.history.Observations(r.Context(), q.Get("stationId"), date, q.Get("units"))
	if err != nil {
		status, body := service.ErrorResponse(err)
		msg := string(body)
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", status)
		}
		data.SetError(msg, service.IsTransportError(err))
		h.writePage(w, r, status, data)
		return
	}

	observability.ObservationsRendered.Observe(float64(len(records)))
	data.SetTable(render.BuildTable(records))
	h.writePage(w, r, http.StatusOK, data)
}

// GetHistoryCSV handles GET /history.csv. By default the export is the rendered
// table text; precision=full exports the normalized values. An empty result is
// 204 with no attachment.
func (h *Handler) GetHistoryCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := validation.DateFromInput(q.Get("date"))
	records, err := h.history.Observations(r.Context(), q.Get("stationId"), date, q.Get("units"))
	if err != nil {
		writeFetchError(w, err)
		return
	}

	precision := "rendered"
	var buf bytes.Buffer
	if q.Get("precision") == "full" {
		precision = "full"
		err = render.WriteRecordsCSV(&buf, records)
	} else {
		err = render.WriteCSV(&buf, render.BuildTable(records))
	}
	if errors.Is(err, render.ErrEmptyTable) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.requestLogger(r).Error("csv export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "csv export failed"})
		return
	}

	observability.CSVExportsTotal.WithLabelValues(precision).Inc()
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.CSVFilename))
	writeRaw(w, http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, status int, data *render.PageData) {
	var buf bytes.Buffer
	if err := render.RenderPage(&buf, data); err != nil {
		h.requestLogger(r).Error("page render failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to render page"})
		return
	}
	writeRaw(w, status, "text/html; charset=utf-8", buf.Bytes())
}

// requestLogger returns the correlation-scoped logger set by CorrelationIDMiddleware,
// falling back to the handler's base logger.
func (h *Handler) requestLogger(r *http.Request) *zap.Logger {
	if l, ok := r.Context().Value(observability.LoggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return h.logger
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeFetchError writes the proxy error contract: upstream errors keep their status
// and raw body, local failures are {error[, details]}.
func writeFetchError(w http.ResponseWriter, err error) {
	status, body := service.ErrorResponse(err)
	writeRaw(w, status, "application/json", body)
}
