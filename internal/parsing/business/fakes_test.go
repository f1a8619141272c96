package business

import (
	"context"
	"errors"
	"sync"

	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/internal/parsing/storage"
)

var errDiskFull = errors.New("disk full")

// memStore - каталог в памяти с транзакциями "копия + подмена при commit".
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	products map[string]models.CatalogProduct
	sizes    map[int64][]models.SizeRow
	// failSizes ломает ReplaceSizes для указанных артикулов уже после записи товара.
	failSizes map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[string]models.CatalogProduct),
		sizes:     make(map[int64][]models.SizeRow),
		failSizes: make(map[string]bool),
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx storage.CatalogTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		nextID:   s.nextID,
		products: make(map[string]models.CatalogProduct, len(s.products)),
		sizes:    make(map[int64][]models.SizeRow, len(s.sizes)),
	}
	for k, v := range s.products {
		tx.products[k] = v
	}
	for k, v := range s.sizes {
		tx.sizes[k] = append([]models.SizeRow(nil), v...)
	}

	if err := fn(tx); err != nil {
		return err
	}
	s.nextID, s.products, s.sizes = tx.nextID, tx.products, tx.sizes
	return nil
}

func (s *memStore) product(article string, marketplace models.Marketplace) (models.CatalogProduct, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[models.ScrapeRequest{Article: article, Marketplace: marketplace}.Key()]
	return p, ok
}

func (s *memStore) sizesOf(id int64) []models.SizeRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SizeRow(nil), s.sizes[id]...)
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

type memTx struct {
	store    *memStore
	nextID   int64
	products map[string]models.CatalogProduct
	sizes    map[int64][]models.SizeRow
}

func (tx *memTx) FindProduct(_ context.Context, article string, marketplace models.Marketplace) (*models.CatalogProduct, error) {
	p, ok := tx.products[models.ScrapeRequest{Article: article, Marketplace: marketplace}.Key()]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tx *memTx) InsertProduct(_ context.Context, product models.ParsedProduct) (int64, error) {
	key := product.Key()
	if _, ok := tx.products[key]; ok {
		return 0, errors.New("unique_violation")
	}
	tx.nextID++
	tx.products[key] = models.CatalogProduct{
		ID:          tx.nextID,
		Article:     product.Article,
		Marketplace: product.Marketplace,
		Name:        product.Name,
		Price:       product.Price,
		SalePrice:   product.SalePrice,
		TotalStock:  product.TotalQuantity,
	}
	return tx.nextID, nil
}

func (tx *memTx) UpdateProduct(_ context.Context, id int64, product models.ParsedProduct) error {
	for key, p := range tx.products {
		if p.ID != id {
			continue
		}
		price, salePrice := p.Price, p.SalePrice
		p.PriceOld, p.SalePriceOld = &price, &salePrice
		p.Name, p.Price, p.SalePrice, p.TotalStock = product.Name, product.Price, product.SalePrice, product.TotalQuantity
		tx.products[key] = p
		return nil
	}
	return errors.New("product not found")
}

func (tx *memTx) ReplaceSizes(_ context.Context, productID int64, sizes []models.SizeStock) error {
	for _, p := range tx.products {
		if p.ID == productID && tx.store.failSizes[p.Article] {
			return errDiskFull
		}
	}
	rows := make([]models.SizeRow, 0, len(sizes))
	for _, s := range sizes {
		rows = append(rows, models.SizeRow{ProductID: productID, Size: s.Size, Stock: s.Stock})
	}
	tx.sizes[productID] = rows
	return nil
}

// fakeInvoker отдает заранее заданные результаты по артикулу.
type fakeInvoker struct {
	mu      sync.Mutex
	results map[string]*models.ScrapeResult
	errs    map[string]error
	calls   []string
	block   chan struct{}
}

func (f *fakeInvoker) Invoke(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Key())
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[req.Article]; ok {
		return nil, &InvocationError{Request: req, Err: err}
	}
	if res, ok := f.results[req.Article]; ok {
		copied := *res
		return &copied, nil
	}
	return nil, &InvocationError{Request: req, Err: ErrNoJSON}
}

func shoe(price, salePrice float64, sizes ...models.SizeStock) *models.ScrapeResult {
	total := 0
	for _, s := range sizes {
		total += s.Stock
	}
	if sizes == nil {
		sizes = []models.SizeStock{}
	}
	return &models.ScrapeResult{Name: "Shoe", Price: price, SalePrice: salePrice, TotalQuantity: total, Sizes: sizes}
}
