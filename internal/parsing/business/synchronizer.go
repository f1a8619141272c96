package business

import (
	"context"
	"fmt"
	"io"

	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/internal/parsing/storage"
	"gomarketplace_parser/metrics"
	"gomarketplace_parser/pkg/logger"
)

type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
)

type SyncReport struct {
	Inserted int         `json:"inserted"`
	Updated  int         `json:"updated"`
	Failed   []ItemError `json:"failed,omitempty"`
}

// CatalogSynchronizer сохраняет результаты парсинга в каталог.
// Каждый товар пишется в отдельной транзакции, ошибка одного товара не влияет на остальные.
type CatalogSynchronizer struct {
	store storage.CatalogStore
	log   logger.Logger
}

func NewCatalogSynchronizer(store storage.CatalogStore, writer io.Writer) *CatalogSynchronizer {
	return &CatalogSynchronizer{
		store: store,
		log:   logger.NewLogger(writer, "[CatalogSynchronizer]"),
	}
}

// Sync обрабатывает товары по порядку. Ошибка возвращается только при отмене ctx.
func (cs *CatalogSynchronizer) Sync(ctx context.Context, products []models.ParsedProduct) (*SyncReport, error) {
	report := &SyncReport{}
	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		action, err := cs.Reconcile(ctx, product)
		if err != nil {
			metrics.RecordReconciled(product.Marketplace.String(), "failed")
			cs.log.Log("failed to save %s: %v", product.Key(), err)
			report.Failed = append(report.Failed, ItemError{Request: product.ScrapeRequest, Reason: err.Error(), Err: err})
			continue
		}

		switch action {
		case ActionInsert:
			report.Inserted++
		case ActionUpdate:
			report.Updated++
		}
		metrics.RecordReconciled(product.Marketplace.String(), string(action))
		cs.log.Log("processed product %s (%s)", product.Key(), action)
	}
	return report, nil
}

// Reconcile вставляет или обновляет один товар и полностью заменяет его размеры.
func (cs *CatalogSynchronizer) Reconcile(ctx context.Context, product models.ParsedProduct) (Action, error) {
	var action Action
	err := cs.store.WithinTx(ctx, func(tx storage.CatalogTx) error {
		existing, err := tx.FindProduct(ctx, product.Article, product.Marketplace)
		if err != nil {
			return err
		}

		var productID int64
		if existing != nil {
			if err := tx.UpdateProduct(ctx, existing.ID, product); err != nil {
				return err
			}
			productID, action = existing.ID, ActionUpdate
		} else {
			productID, err = tx.InsertProduct(ctx, product)
			if err != nil {
				return err
			}
			action = ActionInsert
		}

		return tx.ReplaceSizes(ctx, productID, product.Sizes)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return action, nil
}
