package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/pkg/logger"
)

type ProductHandler struct {
	products ProductReader
	log      logger.Logger
}

func NewProductHandler(products ProductReader, writer io.Writer) *ProductHandler {
	return &ProductHandler{products: products, log: logger.NewLogger(writer, "[ProductHandler]")}
}

type productResponse struct {
	*models.CatalogProduct
	Sizes []models.SizeRow `json:"sizes"`
}

func (h *ProductHandler) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	marketplace, err := models.ParseMarketplace(vars["marketplace"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, sizes, err := h.products.ProductWithSizes(r.Context(), vars["article"], marketplace)
	if err != nil {
		h.log.Log("failed to fetch product %s:%s: %v", marketplace, vars["article"], err)
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if sizes == nil {
		sizes = []models.SizeRow{}
	}
	writeJSON(w, http.StatusOK, productResponse{CatalogProduct: product, Sizes: sizes})
}

func (h *ProductHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.products.Ping(ctx); err != nil {
		h.log.Log("health check failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "database is unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
