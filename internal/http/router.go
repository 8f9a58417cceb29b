package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/pws-history-proxy/internal/observability"
)

// RouterConfig selects the optional parts of the router.
type RouterConfig struct {
	StaticDir   string // served at / when non-empty
	CSPEnabled  bool
	MetricsPath string // default /metrics
}

// NewRouter wires handlers and middleware into a mux.Router.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(SecurityHeadersMiddleware(cfg.CSPEnabled))

	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.HandleFunc("/ready", h.GetReady).Methods("GET")
	router.Handle(metricsPath, observability.MetricsHandler()).Methods("GET")
	router.HandleFunc("/api/wu/history", h.GetHistory).Methods("GET")
	router.HandleFunc("/history", h.GetHistoryPage).Methods("GET")
	router.HandleFunc("/history.csv", h.GetHistoryCSV).Methods("GET")

	if cfg.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods("GET", "HEAD")
	}
	return router
}
