package runs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/astlabs/run-portal/pkg/models"
)

// Store persists submitted run records. Records are written once per run ID
// by the submission flow and never updated.
type Store interface {
	Insert(ctx context.Context, rec models.RunRecord) error
	List(ctx context.Context) ([]models.RunRecord, error)
}

// PostgresStore keeps run records in a Postgres table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and verifies connectivity.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is not configured")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the run table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ast_runs (
			run_id           TEXT NOT NULL,
			location         TEXT NOT NULL,
			job_instance_id  TEXT NOT NULL,
			job_workspace_id TEXT NOT NULL,
			parameters       TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure runs schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec models.RunRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ast_runs (run_id, location, job_instance_id, job_workspace_id, parameters)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.RunID, rec.Location, rec.JobInstanceID, rec.JobWorkspaceID, rec.Parameters,
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.RunRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, location, job_instance_id, job_workspace_id, parameters, created_at
		 FROM ast_runs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		var rec models.RunRecord
		if err := rows.Scan(&rec.RunID, &rec.Location, &rec.JobInstanceID, &rec.JobWorkspaceID, &rec.Parameters, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
