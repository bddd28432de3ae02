// metrics.go — Prometheus HTTP метрики clinic-console.
// Регистрирует метрики: cc_http_requests_total, cc_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cc_http_requests_total",
			Help: "Общее количество HTTP-запросов к clinic-console",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cc_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к clinic-console в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// routePattern возвращает шаблон маршрута chi ("/api/v1/accounts/{id}"),
// а если маршрут не сопоставлен — нормализованный путь.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && pattern != "/*" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// unmatchedPath — метка пути запросов, не совпавших ни с одним маршрутом.
const unmatchedPath = "unmatched"

// normalizePath заменяет идентификаторы учётных записей в пути на {id}
// для предотвращения взрывного роста кардинальности метрик.
// /api/v1/accounts/42/status → /api/v1/accounts/{id}/status
// Прочие пути (сканеры, опечатки) получают общую метку unmatchedPath.
func normalizePath(path string) string {
	const prefix = "/api/v1/accounts/"

	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/accounts",
		"/api/v1/accounts/status",
		"/api/v1/roles",
		"/api/v1/audit":
		return path
	}

	rest, ok := strings.CutPrefix(path, prefix)
	if !ok || rest == "" {
		return unmatchedPath
	}
	if _, suffix, found := strings.Cut(rest, "/"); found {
		if suffix == "status" {
			return prefix + "{id}/status"
		}
		return prefix + "{id}/*"
	}
	return prefix + "{id}"
}
