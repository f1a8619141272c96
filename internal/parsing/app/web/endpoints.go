package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"gomarketplace_parser/internal/parsing/app/web/handlers"
	"gomarketplace_parser/metrics"
	"gomarketplace_parser/pkg/middleware"
)

// SetupRoutes регистрирует все маршруты на корневом роутере: только так mux отвечает 405 при неверном методе.
func SetupRoutes(parseHandler *handlers.ParseHandler, productHandler *handlers.ProductHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.PrometheusMiddleware)
	// mux не применяет Use к несовпавшим запросам, поэтому 404/405 оборачиваются отдельно
	router.NotFoundHandler = middleware.PrometheusMiddleware(http.HandlerFunc(handlers.NotFoundHandler))
	router.MethodNotAllowedHandler = middleware.PrometheusMiddleware(http.HandlerFunc(handlers.MethodNotAllowedHandler))

	router.HandleFunc("/api/parse", parseHandler.PostParseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/products/{marketplace}/{article}", productHandler.GetProductHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/health", productHandler.HealthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.MetricsHandler()).Methods(http.MethodGet)
	return router
}
