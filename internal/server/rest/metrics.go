package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "diagnexus"

// HTTPRequestsTotal counts served requests.
// Labels: method, route (chi pattern), code.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	},
	[]string{"method", "route", "code"},
)

// HTTPRequestDuration measures handler latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ReportsUploadedTotal counts stored reports by MIME type.
var ReportsUploadedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_uploaded_total",
		Help:      "Total number of reports uploaded, by content type.",
	},
	[]string{"content_type"},
)

// ReportBytesUploaded observes upload sizes.
var ReportBytesUploaded = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_upload_bytes",
		Help:      "Size of uploaded reports in bytes.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
	},
)

// ReportsDownloadedTotal counts successful downloads.
var ReportsDownloadedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_downloaded_total",
		Help:      "Total number of report downloads served.",
	},
)

// UploadIdempotencyTotal counts idempotency decisions.
// Label result: "replay" (key seen before) or "new".
var UploadIdempotencyTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_idempotency_total",
		Help:      "Uploads carrying an Idempotency-Key, by result (replay/new).",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts by result.
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts, by result.",
	},
	[]string{"result"},
)

// WarningsTotal counts failed best-effort steps.
var WarningsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "best_effort_failures_total",
		Help:      "Best-effort side effects that failed without failing the request.",
	},
)

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
