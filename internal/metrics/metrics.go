// metrics — Prometheus-метрики HTTP-слоя и сессий.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Результаты для auth_logins_total / auth_refresh_total.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultReused   = "reused"
	ResultError    = "error"
)

// Metrics — набор коллекторов сервиса. Нулевой *Metrics допустим:
// все методы тогда ничего не делают.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	logins   *prometheus.CounterVec
	refresh  *prometheus.CounterVec
}

// New создаёт и регистрирует коллекторы в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Refresh token rotations by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.requests, m.duration, m.logins, m.refresh)

	return m
}

// ObserveLogin учитывает попытку входа.
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}

	m.logins.WithLabelValues(result).Inc()
}

// ObserveRefresh учитывает попытку ротации.
func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}

	m.refresh.WithLabelValues(result).Inc()
}

// Middleware считает запросы и их длительность. Метка route — шаблон chi
// ("/users/c/{username}"), чтобы не плодить кардинальность.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
