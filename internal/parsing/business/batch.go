package business

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/pkg/logger"
)

// Skip - товар, который не удалось распарсить в этом батче.
type Skip struct {
	Request models.ScrapeRequest `json:"request"`
	Reason  string               `json:"reason"`
	Err     error                `json:"-"`
}

type BatchResult struct {
	Parsed  []models.ParsedProduct
	Skipped []Skip
}

type parseOutcome struct {
	done    bool
	product *models.ParsedProduct
	err     error
}

// BatchParser прогоняет список товаров через Invoker, пропуская неудачные.
// По умолчанию товары обрабатываются строго по одному; workers > 1 включает пул воркеров.
type BatchParser struct {
	invoker Invoker
	workers int
	limiter *rate.Limiter
	log     logger.Logger
}

// NewBatchParser создает парсер. ratePerMinute == 0 отключает ограничение частоты запусков.
func NewBatchParser(invoker Invoker, workers, ratePerMinute int, writer io.Writer) *BatchParser {
	if workers < 1 {
		workers = 1
	}
	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1)
	}
	return &BatchParser{
		invoker: invoker,
		workers: workers,
		limiter: limiter,
		log:     logger.NewLogger(writer, "[BatchParser]"),
	}
}

// ParseAll возвращает успешно распарсенные товары в порядке входного списка.
// Ошибка одного товара не прерывает батч; ошибка возвращается только при отмене ctx,
// вместе с тем, что успели распарсить.
func (bp *BatchParser) ParseAll(ctx context.Context, requests []models.ScrapeRequest) (*BatchResult, error) {
	outcomes := make([]parseOutcome, len(requests))

	if bp.workers == 1 || len(requests) < 2 {
		for i, req := range requests {
			if ctx.Err() != nil {
				break
			}
			outcomes[i] = bp.parseOne(ctx, req)
		}
	} else {
		bp.parseConcurrently(ctx, requests, outcomes)
	}

	result := &BatchResult{Parsed: make([]models.ParsedProduct, 0, len(requests))}
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if o.err != nil {
			result.Skipped = append(result.Skipped, Skip{Request: requests[i], Reason: o.err.Error(), Err: o.err})
			continue
		}
		result.Parsed = append(result.Parsed, *o.product)
	}

	bp.log.Log("parsed %d of %d products, skipped %d", len(result.Parsed), len(requests), len(result.Skipped))
	return result, ctx.Err()
}

func (bp *BatchParser) parseConcurrently(ctx context.Context, requests []models.ScrapeRequest, outcomes []parseOutcome) {
	workers := bp.workers
	if workers > len(requests) {
		workers = len(requests)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = bp.parseOne(ctx, requests[i])
			}
		}()
	}

feed:
	for i := range requests {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}

func (bp *BatchParser) parseOne(ctx context.Context, req models.ScrapeRequest) parseOutcome {
	if bp.limiter != nil {
		if err := bp.limiter.Wait(ctx); err != nil {
			return parseOutcome{}
		}
	}

	res, err := bp.invoker.Invoke(ctx, req)
	if err == nil && res == nil {
		err = fmt.Errorf("%w: empty result", ErrMalformedResult)
	}
	if err != nil {
		if ctx.Err() != nil {
			return parseOutcome{}
		}
		bp.log.Log("skipped %s: %v", req.Key(), err)
		return parseOutcome{done: true, err: err}
	}
	return parseOutcome{done: true, product: &models.ParsedProduct{ScrapeRequest: req, ScrapeResult: *res}}
}
