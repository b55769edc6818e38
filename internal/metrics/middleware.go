package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = histogram("http_request_duration_seconds",
		"HTTP request latency",
		[]float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}, "method", "route", "status")
	httpRequestsTotal = counter("http_requests_total",
		"HTTP requests served", "method", "route", "status")

	httpGroup = group{collectors: func() []prometheus.Collector {
		return []prometheus.Collector{httpRequestDuration, httpRequestsTotal}
	}}
)

// RegisterHTTPMetrics puts the middleware collectors on the default registry.
func RegisterHTTPMetrics() { httpGroup.register() }

// Middleware counts and times requests. The route label is the chi pattern,
// so /collections/notes and /collections/faq share /collections/{name}.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			labels := []string{r.Method, routePattern(r), statusLabel(ww.Status())}
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(labels...).Inc()
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}

// statusLabel maps the zero status of a handler that never wrote to 200.
func statusLabel(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status)
}
