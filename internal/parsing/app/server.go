package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gomarketplace_parser/config"
	"gomarketplace_parser/internal/parsing/app/web"
	"gomarketplace_parser/internal/parsing/app/web/handlers"
	"gomarketplace_parser/internal/parsing/business"
	"gomarketplace_parser/internal/parsing/storage"
	"gomarketplace_parser/migrations/infrastructure"
	"gomarketplace_parser/pkg/dbconnect"
	"gomarketplace_parser/pkg/dbconnect/migration"
	"gomarketplace_parser/pkg/dbconnect/postgres"
	"gomarketplace_parser/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type ParserServer struct {
	config   *config.AppConfig
	database dbconnect.Database
	writer   io.Writer
	log      logger.Logger
}

func NewParserServer(cfg *config.AppConfig, writer io.Writer) *ParserServer {
	return &ParserServer{
		config:   cfg,
		database: postgres.NewPgConnector(&cfg.Postgres, writer),
		writer:   writer,
		log:      logger.NewLogger(writer, "[ParserServer]"),
	}
}

// Run поднимает сервис и блокируется до отмены ctx, после чего останавливает http и планировщик.
func (s *ParserServer) Run(ctx context.Context) error {
	db, err := s.database.Connect(ctx)
	if err != nil {
		return fmt.Errorf("error connecting to PostgreSQL: %w", err)
	}
	defer s.database.Close()

	if err := migration.Apply(db, infrastructure.All()...); err != nil {
		return err
	}
	s.log.Log("catalog migrations applied successfully")

	invoker, err := business.NewScriptInvoker(s.config.Parsing, s.writer)
	if err != nil {
		return err
	}
	repo := storage.NewCatalogRepository(db, s.writer)
	pipeline := business.NewPipeline(
		business.NewBatchParser(invoker, s.config.Parsing.Workers, s.config.Parsing.RatePerMinute, s.writer),
		business.NewCatalogSynchronizer(repo, s.writer),
		s.writer,
	)

	if s.config.Scheduler.Enabled {
		sources := []storage.TrackedSource{repo}
		if s.config.Sources.ExcelPath != "" {
			sources = append(sources, storage.NewExcelSource(s.config.Sources.ExcelPath, s.writer))
		}
		if s.config.Sources.CSVPath != "" {
			csvSource, err := storage.NewCSVSource(s.config.Sources.CSVPath, s.config.Sources.CSVEncoding, storage.NewHTTPFetcher(), s.writer)
			if err != nil {
				return err
			}
			sources = append(sources, csvSource)
		}
		scheduler := NewScheduler(s.config.Scheduler, pipeline, s.writer, sources...)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr: s.config.HTTP.Addr,
		Handler: web.SetupRoutes(
			handlers.NewParseHandler(pipeline, s.writer),
			handlers.NewProductHandler(repo, s.writer),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.log.Log("parser service listening on %s", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Log("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
