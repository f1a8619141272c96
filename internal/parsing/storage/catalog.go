package storage

import (
	"context"

	"gomarketplace_parser/internal/parsing/models"
)

// CatalogTx - операции над каталогом в рамках одной транзакции.
type CatalogTx interface {
	// FindProduct возвращает nil, nil если товара нет.
	FindProduct(ctx context.Context, article string, marketplace models.Marketplace) (*models.CatalogProduct, error)
	InsertProduct(ctx context.Context, product models.ParsedProduct) (int64, error)
	// UpdateProduct переносит price/sale_price в price_old/sale_price_old и записывает новые значения.
	UpdateProduct(ctx context.Context, id int64, product models.ParsedProduct) error
	// ReplaceSizes удаляет все размеры товара и вставляет переданные.
	ReplaceSizes(ctx context.Context, productID int64, sizes []models.SizeStock) error
}

type CatalogStore interface {
	// WithinTx выполняет fn в транзакции: commit при nil, rollback при ошибке.
	WithinTx(ctx context.Context, fn func(tx CatalogTx) error) error
}

// TrackedSource отдает список товаров, которые нужно парсить по расписанию.
type TrackedSource interface {
	Tracked(ctx context.Context) ([]models.ScrapeRequest, error)
}

// CollectTracked объединяет источники, сохраняя порядок и убирая дубликаты.
func CollectTracked(ctx context.Context, sources ...TrackedSource) ([]models.ScrapeRequest, error) {
	seen := make(map[string]struct{})
	var result []models.ScrapeRequest
	for _, source := range sources {
		requests, err := source.Tracked(ctx)
		if err != nil {
			return nil, err
		}
		for _, req := range requests {
			if _, ok := seen[req.Key()]; ok {
				continue
			}
			seen[req.Key()] = struct{}{}
			result = append(result, req)
		}
	}
	return result, nil
}
