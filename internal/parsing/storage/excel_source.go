package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/pkg/logger"
)

var (
	articleHeaders     = []string{"article", "артикул"}
	marketplaceHeaders = []string{"marketplace", "маркетплейс"}
)

// ExcelSource читает список товаров из первого листа xlsx.
// Если в первой строке есть заголовки article/marketplace, колонки берутся по ним, иначе - первые две.
type ExcelSource struct {
	path string
	log  logger.Logger
}

func NewExcelSource(path string, logWriter io.Writer) *ExcelSource {
	return &ExcelSource{path: path, log: logger.NewLogger(logWriter, "[ExcelSource]")}
}

func (s *ExcelSource) Tracked(ctx context.Context) ([]models.ScrapeRequest, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file %s: %w", s.path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file %s has no sheets", s.path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	result, err := requestsFromRows(ctx, rows, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Log("loaded %d products from %s", len(result), s.path)
	return result, nil
}

// requestsFromRows разбирает табличные строки (article, marketplace). Невалидные строки пропускаются с записью в лог.
func requestsFromRows(ctx context.Context, rows [][]string, log logger.Logger) ([]models.ScrapeRequest, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	articleCol, marketplaceCol, startRow := 0, 1, 0
	if a, m, ok := headerColumns(rows[0]); ok {
		articleCol, marketplaceCol, startRow = a, m, 1
	}

	var result []models.ScrapeRequest
	for i := startRow; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := rows[i]
		article := cell(row, articleCol)
		if article == "" {
			continue
		}
		marketplace, err := models.ParseMarketplace(cell(row, marketplaceCol))
		if err != nil {
			log.Log("row %d skipped: %v", i+1, err)
			continue
		}
		result = append(result, models.ScrapeRequest{Article: article, Marketplace: marketplace})
	}
	return result, nil
}

func headerColumns(row []string) (int, int, bool) {
	articleCol, marketplaceCol := -1, -1
	for i, value := range row {
		value = strings.ToLower(strings.TrimSpace(value))
		if contains(articleHeaders, value) {
			articleCol = i
		}
		if contains(marketplaceHeaders, value) {
			marketplaceCol = i
		}
	}
	return articleCol, marketplaceCol, articleCol >= 0 && marketplaceCol >= 0
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
