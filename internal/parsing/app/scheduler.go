package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-co-op/gocron"
	"gomarketplace_parser/config"
	"gomarketplace_parser/internal/parsing/business"
	"gomarketplace_parser/internal/parsing/storage"
	"gomarketplace_parser/pkg/logger"
)

// Scheduler периодически прогоняет через Runner все отслеживаемые товары.
type Scheduler struct {
	cfg     config.SchedulerConfig
	runner  business.Runner
	sources []storage.TrackedSource
	cron    *gocron.Scheduler
	log     logger.Logger
}

func NewScheduler(cfg config.SchedulerConfig, runner business.Runner, writer io.Writer, sources ...storage.TrackedSource) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cfg:     cfg,
		runner:  runner,
		sources: sources,
		cron:    cron,
		log:     logger.NewLogger(writer, "[Scheduler]"),
	}
}

// Start регистрирует задачу и запускает планировщик в фоне. Задачи выполняются с контекстом ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	job := s.cron.Every(s.cfg.Interval)
	if !s.cfg.RunOnStart {
		job = job.WaitForSchedule()
	}
	if _, err := job.Do(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Log("scheduled run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule batch: %w", err)
	}

	s.cron.StartAsync()
	s.log.Log("scheduled every %s (run on start: %t)", s.cfg.Interval, s.cfg.RunOnStart)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce собирает товары из источников и запускает батч.
// Пустой список и уже идущий батч не считаются ошибкой: возвращается nil, nil.
func (s *Scheduler) RunOnce(ctx context.Context) (*business.RunReport, error) {
	requests, err := storage.CollectTracked(ctx, s.sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to collect tracked products: %w", err)
	}
	if len(requests) == 0 {
		s.log.Log("no tracked products, nothing to parse")
		return nil, nil
	}

	report, err := s.runner.Run(ctx, requests)
	if errors.Is(err, business.ErrBatchInProgress) {
		s.log.Log("previous batch is still running, skipping tick")
		return nil, nil
	}
	return report, err
}
