package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/pkg/logger"
)

// Fetcher получает содержимое выгрузки по URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// CSVSource читает список товаров из csv с разделителем ';'.
// location - путь к файлу или http(s) URL. По умолчанию выгрузка в Windows-1251.
type CSVSource struct {
	location string
	decoder  *encoding.Decoder
	fetcher  Fetcher
	log      logger.Logger
}

func NewCSVSource(location, charset string, fetcher Fetcher, logWriter io.Writer) (*CSVSource, error) {
	enc := encoding.Encoding(charmap.Windows1251)
	if charset != "" {
		var err error
		if enc, err = htmlindex.Get(charset); err != nil {
			return nil, fmt.Errorf("unsupported csv encoding %q: %w", charset, err)
		}
	}
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}
	return &CSVSource{
		location: location,
		decoder:  enc.NewDecoder(),
		fetcher:  fetcher,
		log:      logger.NewLogger(logWriter, "[CSVSource]"),
	}, nil
}

func (s *CSVSource) Tracked(ctx context.Context) ([]models.ScrapeRequest, error) {
	body, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv %s: %w", s.location, err)
	}
	defer body.Close()

	reader := csv.NewReader(transform.NewReader(body, s.decoder))
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read error: %w", err)
	}
	result, err := requestsFromRows(ctx, rows, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Log("loaded %d products from %s", len(result), s.location)
	return result, nil
}

func (s *CSVSource) open(ctx context.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(s.location, "http://") || strings.HasPrefix(s.location, "https://") {
		return s.fetcher.Fetch(ctx, s.location)
	}
	return os.Open(s.location)
}
