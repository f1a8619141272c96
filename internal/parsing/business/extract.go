package business

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gomarketplace_parser/internal/parsing/models"
)

// ExtractJSON возвращает жадный отрезок вывода от первой '{' до последней '}'.
// Если отрезок не является валидным json, это ErrInvalidJSON: другие объекты в выводе не ищутся.
func ExtractJSON(output string) (string, error) {
	start := strings.IndexByte(output, '{')
	end := strings.LastIndexByte(output, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}

	candidate := output[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", ErrInvalidJSON
	}
	return candidate, nil
}

type rawSize struct {
	Size  *string `json:"size"`
	Stock *int    `json:"stock"`
}

type rawResult struct {
	Name          *string    `json:"name"`
	Price         *float64   `json:"price"`
	SalePrice     *float64   `json:"sale_price"`
	TotalQuantity *int       `json:"total_quantity"`
	Sizes         *[]rawSize `json:"sizes"`
}

// DecodeResult разбирает json и проверяет обязательные поля.
// Любое отсутствующее поле, неверный тип или отрицательное значение - ErrMalformedResult.
func DecodeResult(payload string) (*models.ScrapeResult, error) {
	var raw rawResult
	if err := json.NewDecoder(bytes.NewReader([]byte(payload))).Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: field %q: expected %s, got %s", ErrMalformedResult, typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var missing []string
	if raw.Name == nil || strings.TrimSpace(*raw.Name) == "" {
		missing = append(missing, "name")
	}
	if raw.Price == nil {
		missing = append(missing, "price")
	}
	if raw.SalePrice == nil {
		missing = append(missing, "sale_price")
	}
	if raw.TotalQuantity == nil {
		missing = append(missing, "total_quantity")
	}
	if raw.Sizes == nil {
		missing = append(missing, "sizes")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResult, strings.Join(missing, ", "))
	}

	if *raw.Price < 0 || *raw.SalePrice < 0 || *raw.TotalQuantity < 0 {
		return nil, fmt.Errorf("%w: negative price or quantity", ErrMalformedResult)
	}

	result := &models.ScrapeResult{
		Name:          strings.TrimSpace(*raw.Name),
		Price:         *raw.Price,
		SalePrice:     *raw.SalePrice,
		TotalQuantity: *raw.TotalQuantity,
		Sizes:         make([]models.SizeStock, 0, len(*raw.Sizes)),
	}
	for i, s := range *raw.Sizes {
		if s.Size == nil || s.Stock == nil {
			return nil, fmt.Errorf("%w: sizes[%d] must have size and stock", ErrMalformedResult, i)
		}
		if *s.Stock < 0 {
			return nil, fmt.Errorf("%w: sizes[%d] has negative stock", ErrMalformedResult, i)
		}
		result.Sizes = append(result.Sizes, models.SizeStock{Size: *s.Size, Stock: *s.Stock})
	}
	return result, nil
}
