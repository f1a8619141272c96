package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/lib/pq"
	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/pkg/logger"
)

type CatalogRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewCatalogRepository(db *sql.DB, logWriter io.Writer) *CatalogRepository {
	log := logger.NewLogger(logWriter, "[CatalogRepository]")
	log.Log("CatalogRepository successfully created.")
	return &CatalogRepository{
		db:     db,
		logger: log,
	}
}

func (r *CatalogRepository) WithinTx(ctx context.Context, fn func(tx CatalogTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", describe(err))
	}
	defer tx.Rollback()

	if err := fn(&catalogTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", describe(err))
	}
	return nil
}

// Tracked возвращает все товары каталога в порядке добавления.
func (r *CatalogRepository) Tracked(ctx context.Context) ([]models.ScrapeRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT article, marketplace FROM catalog.products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked products: %w", describe(err))
	}
	defer rows.Close()

	var result []models.ScrapeRequest
	for rows.Next() {
		var req models.ScrapeRequest
		if err := rows.Scan(&req.Article, &req.Marketplace); err != nil {
			return nil, fmt.Errorf("failed to scan tracked product: %w", err)
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracked products: %w", err)
	}
	return result, nil
}

// ProductWithSizes возвращает карточку каталога с размерами, nil если товара нет.
func (r *CatalogRepository) ProductWithSizes(ctx context.Context, article string, marketplace models.Marketplace) (*models.CatalogProduct, []models.SizeRow, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, selectProductQuery, article, marketplace))
	if err != nil || product == nil {
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, size, stock FROM catalog.sizes WHERE product_id = $1 ORDER BY id`, product.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query sizes: %w", describe(err))
	}
	defer rows.Close()

	sizes := make([]models.SizeRow, 0)
	for rows.Next() {
		var size models.SizeRow
		if err := rows.Scan(&size.ProductID, &size.Size, &size.Stock); err != nil {
			return nil, nil, fmt.Errorf("failed to scan size: %w", err)
		}
		sizes = append(sizes, size)
	}
	return product, sizes, rows.Err()
}

func (r *CatalogRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const selectProductQuery = `
	SELECT id, article, marketplace, name, price, sale_price,
	       price_old, sale_price_old, total_stock, created_at, updated_at
	FROM catalog.products
	WHERE article = $1 AND marketplace = $2
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.CatalogProduct, error) {
	var (
		p            models.CatalogProduct
		priceOld     sql.NullFloat64
		salePriceOld sql.NullFloat64
	)
	err := row.Scan(&p.ID, &p.Article, &p.Marketplace, &p.Name, &p.Price, &p.SalePrice,
		&priceOld, &salePriceOld, &p.TotalStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", describe(err))
	}
	if priceOld.Valid {
		p.PriceOld = &priceOld.Float64
	}
	if salePriceOld.Valid {
		p.SalePriceOld = &salePriceOld.Float64
	}
	return &p, nil
}

type catalogTx struct {
	tx *sql.Tx
}

func (c *catalogTx) FindProduct(ctx context.Context, article string, marketplace models.Marketplace) (*models.CatalogProduct, error) {
	// FOR UPDATE сериализует параллельные записи одного товара.
	return scanProduct(c.tx.QueryRowContext(ctx, selectProductQuery+" FOR UPDATE", article, marketplace))
}

func (c *catalogTx) InsertProduct(ctx context.Context, product models.ParsedProduct) (int64, error) {
	var id int64
	err := c.tx.QueryRowContext(ctx, `
		INSERT INTO catalog.products (
			article, marketplace, name, price, sale_price, price_old, sale_price_old, total_stock
		) VALUES ($1, $2, $3, $4, $5, NULL, NULL, $6)
		RETURNING id
	`,
		product.Article,
		product.Marketplace,
		product.Name,
		product.Price,
		product.SalePrice,
		product.TotalQuantity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert product: %w", describe(err))
	}
	return id, nil
}

func (c *catalogTx) UpdateProduct(ctx context.Context, id int64, product models.ParsedProduct) error {
	_, err := c.tx.ExecContext(ctx, `
		UPDATE catalog.products
		SET
			name = $1,
			price_old = price,
			sale_price_old = sale_price,
			price = $2,
			sale_price = $3,
			total_stock = $4,
			updated_at = now()
		WHERE id = $5
	`,
		product.Name,
		product.Price,
		product.SalePrice,
		product.TotalQuantity,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", id, describe(err))
	}
	return nil
}

func (c *catalogTx) ReplaceSizes(ctx context.Context, productID int64, sizes []models.SizeStock) error {
	if _, err := c.tx.ExecContext(ctx, `DELETE FROM catalog.sizes WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete sizes of product %d: %w", productID, describe(err))
	}
	if len(sizes) == 0 {
		return nil
	}

	stmt, err := c.tx.PrepareContext(ctx, pq.CopyInSchema("catalog", "sizes", "product_id", "size", "stock"))
	if err != nil {
		return fmt.Errorf("failed to prepare sizes copy: %w", describe(err))
	}
	for _, size := range sizes {
		if _, err = stmt.ExecContext(ctx, productID, size.Size, size.Stock); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy size %q: %w", size.Size, describe(err))
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush sizes copy: %w", describe(err))
	}
	return stmt.Close()
}

// describe дописывает к ошибке postgres имя кода (unique_violation и т.п.).
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s [%s]: %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	return err
}
