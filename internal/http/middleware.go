package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/pws-history-proxy/internal/observability"
)

// ContentSecurityPolicy restricts scripts, styles and connections to this origin plus
// the font/style CDNs and the upstream API host.
const ContentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self'; " +
	"connect-src 'self' https://api.weather.com; " +
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com https://www.gstatic.com; " +
	"style-src-elem 'self' 'unsafe-inline' https://fonts.googleapis.com https://www.gstatic.com; " +
	"img-src 'self' data:; " +
	"font-src 'self' https://fonts.gstatic.com data:; " +
	"frame-ancestors 'self'; " +
	"base-uri 'self'; " +
	"form-action 'self'; " +
	"object-src 'none'"

func CorrelationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), observability.CorrelationIDKey, corrID)
			w.Header().Set("X-Correlation-ID", corrID)

			ctx = observability.WithLogger(ctx, logger.With(zap.String("correlation_id", corrID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTPRequestsInFlight.Inc()
		globalInFlightTracker.Increment()
		defer func() {
			observability.HTTPRequestsInFlight.Dec()
			globalInFlightTracker.Decrement()
		}()

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		route := getRoute(r)
		method := r.Method
		statusCode := statusCodeString(recorder.statusCode)

		observability.HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
		observability.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
	})
}

// getRoute collapses paths to a bounded label set; static files share one label.
func getRoute(r *http.Request) string {
	switch path := r.URL.Path; path {
	case "/health", "/ready", "/metrics", "/api/wu/history", "/history", "/history.csv":
		return path
	default:
		if strings.HasPrefix(path, "/api/") {
			return "/api/other"
		}
		return "/static"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func statusCodeString(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// SecurityHeadersMiddleware sets the CSP and framing/referrer headers. When enabled
// is false it only sets X-Content-Type-Options.
func SecurityHeadersMiddleware(enabled bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			if enabled {
				h.Set("Content-Security-Policy", ContentSecurityPolicy)
				h.Set("X-Frame-Options", "SAMEORIGIN")
				h.Set("Referrer-Policy", "no-referrer")
				h.Set("Cross-Origin-Opener-Policy", "same-origin")
			}
			next.ServeHTTP(w, r)
		})
	}
}
