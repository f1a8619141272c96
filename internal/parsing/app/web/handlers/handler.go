package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"gomarketplace_parser/internal/parsing/models"
)

// ProductReader - чтение каталога для http.
type ProductReader interface {
	ProductWithSizes(ctx context.Context, article string, marketplace models.Marketplace) (*models.CatalogProduct, []models.SizeRow, error)
	Ping(ctx context.Context) error
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "route not found")
}

func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method "+r.Method+" is not allowed")
}
