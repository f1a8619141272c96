package business

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/metrics"
	"gomarketplace_parser/pkg/logger"
)

// RunReport - итог одного батча.
type RunReport struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Requested  int         `json:"requested"`
	Parsed     int         `json:"parsed"`
	Skipped    []Skip      `json:"skipped,omitempty"`
	Inserted   int         `json:"inserted"`
	Updated    int         `json:"updated"`
	Failed     []ItemError `json:"failed,omitempty"`
}

// Reconciled - сколько товаров из Requested записано в каталог.
func (r *RunReport) Reconciled() int {
	return r.Inserted + r.Updated
}

// Pipeline связывает BatchParser и CatalogSynchronizer.
// Одновременно выполняется не больше одного батча.
type Pipeline struct {
	parser       *BatchParser
	synchronizer *CatalogSynchronizer
	mu           sync.Mutex
	log          *logger.BaseLogger
}

func NewPipeline(parser *BatchParser, synchronizer *CatalogSynchronizer, writer io.Writer) *Pipeline {
	return &Pipeline{
		parser:       parser,
		synchronizer: synchronizer,
		log:          logger.NewLogger(writer, "[Pipeline]"),
	}
}

// Run парсит и сохраняет товары. Если батч уже идет, сразу возвращает ErrBatchInProgress.
func (p *Pipeline) Run(ctx context.Context, requests []models.ScrapeRequest) (*RunReport, error) {
	if !p.mu.TryLock() {
		metrics.RecordBatchRun("rejected")
		return nil, ErrBatchInProgress
	}
	defer p.mu.Unlock()

	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Requested: len(requests),
	}
	log := p.log.WithPrefix("[" + report.RunID + "]")
	log.Log("batch started, %d products", len(requests))

	parsed, err := p.parser.ParseAll(ctx, requests)
	if parsed != nil {
		report.Parsed = len(parsed.Parsed)
		report.Skipped = parsed.Skipped
	}
	if err != nil {
		return p.finish(log, report, err)
	}

	synced, err := p.synchronizer.Sync(ctx, parsed.Parsed)
	if synced != nil {
		report.Inserted = synced.Inserted
		report.Updated = synced.Updated
		report.Failed = synced.Failed
	}
	return p.finish(log, report, err)
}

func (p *Pipeline) finish(log logger.Logger, report *RunReport, err error) (*RunReport, error) {
	report.FinishedAt = time.Now()
	status := "completed"
	if err != nil {
		status = "cancelled"
	}
	metrics.RecordBatchRun(status)
	log.Log("batch %s in %s: %d of %d reconciled (inserted %d, updated %d), skipped %d, failed %d",
		status, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		report.Reconciled(), report.Requested, report.Inserted, report.Updated,
		len(report.Skipped), len(report.Failed))
	return report, err
}

// Runner запускает батч; реализуется Pipeline, подменяется в тестах планировщика и http.
type Runner interface {
	Run(ctx context.Context, requests []models.ScrapeRequest) (*RunReport, error)
}
