// metrics.go -- Prometheus instrumentation for the install flow.
package install

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one registry. A nil *Metrics is a valid no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	signatureChecks  *prometheus.CounterVec
	exchanges        *prometheus.CounterVec
	exchangeDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "obol_http_requests_total",
			Help: "HTTP requests served, by route pattern and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "obol_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		signatureChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "obol_signature_checks_total",
			Help: "Inbound platform signature verifications by route and result.",
		}, []string{"route", "result"}), // result: valid|invalid
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "obol_token_exchanges_total",
			Help: "Token exchanges by outcome.",
		}, []string{"result"}), // result: success|business_error|transport_error|timeout
		exchangeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "obol_token_exchange_duration_seconds",
			Help:    "Latency of the outbound token exchange.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
	for _, c := range []prometheus.Collector{
		m.requests, m.requestDuration, m.signatureChecks, m.exchanges, m.exchangeDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument counts and times every request by its chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		// Pattern is only complete after routing; unmatched paths collapse to one label.
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) signatureChecked(route string, valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.signatureChecks.WithLabelValues(route, result).Inc()
}

func (m *Metrics) exchangeFinished(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(result).Inc()
	m.exchangeDuration.Observe(d.Seconds())
}

// routeName labels signature metrics. VerifySignature is only mounted on fixed paths.
func routeName(r *http.Request) string {
	return r.URL.Path
}
