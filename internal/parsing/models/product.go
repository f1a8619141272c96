package models

import (
	"fmt"
	"strings"
	"time"
)

// Marketplace - площадка, с которой парсится карточка товара.
type Marketplace string

const (
	Ozon        Marketplace = "OZON"
	Wildberries Marketplace = "WB"
)

func ParseMarketplace(raw string) (Marketplace, error) {
	switch m := Marketplace(strings.ToUpper(strings.TrimSpace(raw))); m {
	case Ozon, Wildberries:
		return m, nil
	default:
		return "", fmt.Errorf("unknown marketplace %q", raw)
	}
}

func (m Marketplace) String() string { return string(m) }

// ScrapeRequest идентифицирует один товар для парсинга.
type ScrapeRequest struct {
	Article     string      `json:"article"`
	Marketplace Marketplace `json:"marketplace"`
}

// Key возвращает строку вида OZON:123, используется в логах и для дедупликации.
func (r ScrapeRequest) Key() string {
	return string(r.Marketplace) + ":" + r.Article
}

type SizeStock struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// ScrapeResult - провалидированный результат работы скрипта парсера.
type ScrapeResult struct {
	Name          string      `json:"name"`
	Price         float64     `json:"price"`
	SalePrice     float64     `json:"sale_price"`
	TotalQuantity int         `json:"total_quantity"`
	Sizes         []SizeStock `json:"sizes"`
}

// ParsedProduct - запрос, дополненный результатом парсинга.
type ParsedProduct struct {
	ScrapeRequest
	ScrapeResult
}

// CatalogProduct представляет строку catalog.products.
// PriceOld и SalePriceOld пусты после вставки и хранят предыдущие цены после каждого обновления.
type CatalogProduct struct {
	ID           int64       `json:"id"`
	Article      string      `json:"article"`
	Marketplace  Marketplace `json:"marketplace"`
	Name         string      `json:"name"`
	Price        float64     `json:"price"`
	SalePrice    float64     `json:"sale_price"`
	PriceOld     *float64    `json:"price_old"`
	SalePriceOld *float64    `json:"sale_price_old"`
	TotalStock   int         `json:"total_stock"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// SizeRow представляет строку catalog.sizes. Принадлежит одному CatalogProduct.
type SizeRow struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Stock     int    `json:"stock"`
}
