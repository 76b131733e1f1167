package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// PostgresStore реестр состояний саг поверх PostgreSQL
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresConfig конфигурация подключения к PostgreSQL
type PostgresConfig struct {
	DSN   string
	Table string
}

// NewPostgresStore создает новое хранилище поверх PostgreSQL.
// Схема накатывается через goose из встроенных миграций.
func NewPostgresStore(ctx context.Context, config PostgresConfig) (*PostgresStore, error) {
	if config.Table == "" {
		config.Table = "saga_records"
	}

	if err := runMigrations(config.DSN); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresStore{pool: pool, table: config.Table}, nil
}

// runMigrations применяет встроенные миграции схемы.
// goose работает через database/sql, поэтому используется stdlib-драйвер pgx.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (saga_id, order_id, saga_name, status, completed_steps, failed_step, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (saga_id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_steps = EXCLUDED.completed_steps,
			failed_step = EXCLUDED.failed_step,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at`, s.table)

	_, err := s.pool.Exec(ctx, query,
		record.SagaID,
		record.OrderID,
		record.SagaName,
		record.Status,
		record.CompletedSteps,
		record.FailedStep,
		record.Error,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save saga record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sagaID string) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT saga_id, order_id, saga_name, status, completed_steps, failed_step, error, created_at, updated_at
		FROM %s WHERE saga_id = $1`, s.table)

	record, err := scanRecord(s.pool.QueryRow(ctx, query, sagaID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saga record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Record, error) {
	query := fmt.Sprintf(`
		SELECT saga_id, order_id, saga_name, status, completed_steps, failed_step, error, created_at, updated_at
		FROM %s ORDER BY created_at`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list saga records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saga record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saga records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var record Record
	err := row.Scan(
		&record.SagaID,
		&record.OrderID,
		&record.SagaName,
		&record.Status,
		&record.CompletedSteps,
		&record.FailedStep,
		&record.Error,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if record.CompletedSteps == nil {
		record.CompletedSteps = []string{}
	}
	return &record, nil
}
