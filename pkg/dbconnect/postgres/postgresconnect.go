package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"gomarketplace_parser/config"
	"gomarketplace_parser/pkg/logger"
)

const maxRetries = 10
const dbMaxOpenConns = 20
const retryDelay = 5 * time.Second

type PostgresDatabase struct {
	config.DatabaseConfig
	db  *sql.DB
	mu  sync.Mutex // Для защиты доступа к db
	log logger.Logger
}

func NewPgConnector(dbConfig config.DatabaseConfig, writer io.Writer) *PostgresDatabase {
	return &PostgresDatabase{DatabaseConfig: dbConfig, log: logger.NewLogger(writer, "[Postgres]")}
}

// Connect открывает пул соединений, повторяя попытки пока база не поднимется.
func (pg *PostgresDatabase) Connect(ctx context.Context) (*sql.DB, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db != nil {
		return pg.db, nil
	}

	var err error
	conStr := pg.GetConnectionString()

	for i := 0; i < maxRetries; i++ {
		var db *sql.DB
		db, err = sql.Open("postgres", conStr)
		if err != nil {
			pg.log.Log("Failed to connect to Postgres (attempt %d/%d): %v", i+1, maxRetries, err)
		} else {
			db.SetMaxOpenConns(dbMaxOpenConns)
			if err = db.PingContext(ctx); err == nil {
				pg.log.Log("Successfully connected to Postgres")
				pg.db = db
				return pg.db, nil
			}
			pg.log.Log("Failed to ping Postgres db (attempt %d/%d): %v", i+1, maxRetries, err)
			db.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("postgres is unavailable after %d attempts: %w", maxRetries, err)
}

func (pg *PostgresDatabase) Ping(ctx context.Context) error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return fmt.Errorf("database connection is not established")
	}

	if err := pg.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (pg *PostgresDatabase) Close() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return nil
	}
	err := pg.db.Close()
	pg.db = nil
	return err
}
