package infrastructure

import (
	"database/sql"
	"fmt"
	"gomarketplace_parser/pkg/dbconnect/migration"
	"log"
)

const (
	CatalogSchemaMigration   = "catalog.schema"
	CatalogProductsMigration = "catalog.products"
	CatalogSizesMigration    = "catalog.sizes"
)

// MigrationsSchema создает таблицу учета миграций. Должна идти первой.
type MigrationsSchema struct{}

func (m *MigrationsSchema) UpMigration(db *sql.DB) error {
	_, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS migrations;`)
	if err != nil {
		return fmt.Errorf("failed to create migrations schema: %w", err)
	}
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS migrations.migrations (
            id SERIAL PRIMARY KEY,
            time TIMESTAMP NOT NULL,
            name VARCHAR(255) UNIQUE NOT NULL
        );
    `)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

type CatalogSchema struct{}

func (m *CatalogSchema) UpMigration(db *sql.DB) error {
	return applyOnce(db, CatalogSchemaMigration, `CREATE SCHEMA IF NOT EXISTS catalog;`)
}

type CatalogProducts struct{}

func (m *CatalogProducts) UpMigration(db *sql.DB) error {
	return applyOnce(db, CatalogProductsMigration, `
        CREATE TABLE IF NOT EXISTS catalog.products (
            id BIGSERIAL PRIMARY KEY,
            article VARCHAR(100) NOT NULL,
            marketplace VARCHAR(16) NOT NULL,
            name TEXT NOT NULL,
            price NUMERIC(12, 2) NOT NULL,
            sale_price NUMERIC(12, 2) NOT NULL,
            price_old NUMERIC(12, 2),
            sale_price_old NUMERIC(12, 2),
            total_stock INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP NOT NULL,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP NOT NULL,
            CONSTRAINT unique_article_marketplace UNIQUE(article, marketplace)
        );
    `)
}

type CatalogSizes struct{}

func (m *CatalogSizes) UpMigration(db *sql.DB) error {
	return applyOnce(db, CatalogSizesMigration, `
        CREATE TABLE IF NOT EXISTS catalog.sizes (
            id BIGSERIAL PRIMARY KEY,
            product_id BIGINT NOT NULL,
            size VARCHAR(64) NOT NULL,
            stock INTEGER NOT NULL DEFAULT 0,
            CONSTRAINT fk_product
                FOREIGN KEY(product_id)
                    REFERENCES catalog.products(id)
                    ON DELETE CASCADE
        );

        CREATE INDEX IF NOT EXISTS catalog_sizes_product_id_idx ON catalog.sizes(product_id);
    `)
}

// All - миграции сервиса в порядке применения.
func All() []migration.MigrationInterface {
	return []migration.MigrationInterface{
		&MigrationsSchema{},
		&CatalogSchema{},
		&CatalogProducts{},
		&CatalogSizes{},
	}
}

func applyOnce(db *sql.DB, name, query string) error {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = $1)", name).Scan(&migrationExists)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	if migrationExists {
		log.Printf("Migration '%s' already completed. Skipping.", name)
		return nil
	}

	_, err = db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to apply %s: %w", name, err)
	}

	_, err = db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ($1, current_timestamp)", name)
	if err != nil {
		return fmt.Errorf("failed to mark '%s' migration as complete: %w", name, err)
	}

	log.Printf("Migration '%s' completed successfully.", name)
	return nil
}
