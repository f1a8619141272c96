package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnmatchedEndpoint - метка endpoint для запросов, не попавших ни в один маршрут.
const UnmatchedEndpoint = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parser_http_requests_total",
			Help: "HTTP requests to the parser API by route template and status class.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "parser_http_request_duration_seconds",
			Help: "HTTP request latency of the parser API. POST /api/parse runs a whole batch.",
			// парсинг батча синхронный, поэтому хвост длинный
			Buckets: []float64{0.05, 0.25, 1, 5, 30, 120, 600},
		},
		[]string{"method", "endpoint", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
}

// RecordRequest записывает метрики HTTP-запроса. Пустой endpoint пишется как UnmatchedEndpoint.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if endpoint == "" {
		endpoint = UnmatchedEndpoint
	}
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// MetricsHandler отдает метрики в формате Prometheus.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
