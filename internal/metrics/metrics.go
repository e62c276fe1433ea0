// Package metrics собирает prometheus-метрики HTTP-слоя, клиента Spotify и realtime-канала.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics набор метрик сервиса.
type Metrics struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	spotifyRequests    *prometheus.CounterVec
	spotifyTokenGrants prometheus.Counter
	socketConnections  prometheus.Gauge
	gatherer           prometheus.Gatherer
}

// New создает метрики и регистрирует их в отдельном реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jukebox",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jukebox",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		spotifyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jukebox",
			Name:      "spotify_requests_total",
			Help:      "Spotify Web API requests by operation and status.",
		}, []string{"operation", "status"}),
		spotifyTokenGrants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jukebox",
			Name:      "spotify_token_grants_total",
			Help:      "Client credentials grants issued to Spotify.",
		}),
		socketConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jukebox",
			Name:      "socket_connections",
			Help:      "Open realtime connections.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.spotifyRequests, m.spotifyTokenGrants, m.socketConnections)
	return m
}

// Handler отдает метрики в формате prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware считает запросы и их длительность по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
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
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// SpotifyRequest учитывает обращение к Spotify.
func (m *Metrics) SpotifyRequest(operation, status string) {
	m.spotifyRequests.WithLabelValues(operation, status).Inc()
}

// SpotifyTokenGrant учитывает получение токена приложения.
func (m *Metrics) SpotifyTokenGrant() {
	m.spotifyTokenGrants.Inc()
}

// SocketConnected увеличивает число открытых соединений.
func (m *Metrics) SocketConnected() {
	m.socketConnections.Inc()
}

// SocketDisconnected уменьшает число открытых соединений.
func (m *Metrics) SocketDisconnected() {
	m.socketConnections.Dec()
}
