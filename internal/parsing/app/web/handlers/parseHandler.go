package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gomarketplace_parser/internal/parsing/business"
	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/pkg/logger"
)

const maxRequestBody = 1 << 20

type ParseHandler struct {
	runner business.Runner
	log    logger.Logger
}

func NewParseHandler(runner business.Runner, writer io.Writer) *ParseHandler {
	return &ParseHandler{runner: runner, log: logger.NewLogger(writer, "[ParseHandler]")}
}

type parseItem struct {
	Article     string `json:"article"`
	Marketplace string `json:"marketplace"`
}

// PostParseHandler синхронно запускает батч по списку из тела запроса и отдает отчет.
func (h *ParseHandler) PostParseHandler(w http.ResponseWriter, r *http.Request) {
	var items []parseItem
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode request body")
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "empty product list")
		return
	}

	requests := make([]models.ScrapeRequest, 0, len(items))
	for i, item := range items {
		article := strings.TrimSpace(item.Article)
		if article == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("item %d: empty article", i))
			return
		}
		marketplace, err := models.ParseMarketplace(item.Marketplace)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("item %d: %v", i, err))
			return
		}
		requests = append(requests, models.ScrapeRequest{Article: article, Marketplace: marketplace})
	}

	// батч доводится до конца, даже если клиент отвалился
	report, err := h.runner.Run(context.WithoutCancel(r.Context()), requests)
	switch {
	case errors.Is(err, business.ErrBatchInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.log.Log("batch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "batch failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
