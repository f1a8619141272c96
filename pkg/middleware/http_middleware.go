package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gomarketplace_parser/metrics"
)

// responseWriter оборачивает http.ResponseWriter для сохранения кода ответа.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader перехватывает вызов WriteHeader, сохраняя код ответа.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// PrometheusMiddleware оборачивает HTTP-обработчик для сбора метрик.
// В метку endpoint пишется шаблон маршрута mux, чтобы артикулы не раздували кардинальность;
// запросы без маршрута (404, 405) идут под одной меткой.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		metrics.RecordRequest(r.Method, endpointOf(r), rw.status, time.Since(start))
	})
}

func endpointOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return metrics.UnmatchedEndpoint
}
