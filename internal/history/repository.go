package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/clipscommerce/socialscan/pkg/errors"
	"github.com/clipscommerce/socialscan/pkg/logging"
	"github.com/clipscommerce/socialscan/pkg/tracing"
	"github.com/clipscommerce/socialscan/pkg/types"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Config holds scan archive database configuration.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Tracer          *tracing.Service
}

// Repository archives terminal scan results in Postgres so scan history
// survives the 24h in-memory retention window.
type Repository struct {
	db     *sqlx.DB
	logger *logging.Logger
	tracer *tracing.Service
}

// New connects to Postgres and applies pending migrations.
func New(cfg Config) (*Repository, error) {
	if cfg.URL == "" {
		return nil, errors.NewValidationError("database URL is required")
	}

	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, errors.NewInternalError("failed to connect to database").WithCause(err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewInternalError("failed to ping database").WithCause(err)
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracing.Noop()
	}
	repo := &Repository{
		db:     db,
		logger: logging.GetLogger(),
		tracer: tracer,
	}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) migrate() error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return errors.NewInternalError("failed to load migrations").WithCause(err)
	}
	driver, err := postgres.WithInstance(r.db.DB, &postgres.Config{})
	if err != nil {
		return errors.NewInternalError("failed to create migration driver").WithCause(err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return errors.NewInternalError("failed to create migrator").WithCause(err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.NewInternalError("failed to run migrations").WithCause(err)
	}
	return nil
}

type scanRow struct {
	ID                string          `db:"id"`
	UserID            string          `db:"user_id"`
	Platforms         []byte          `db:"platforms"`
	Status            string          `db:"status"`
	StartTime         time.Time       `db:"start_time"`
	EndTime           sql.NullTime    `db:"end_time"`
	TotalPosts        sql.NullInt64   `db:"total_posts"`
	AverageEngagement sql.NullFloat64 `db:"average_engagement"`
	Metrics           []byte          `db:"metrics"`
	Error             sql.NullString  `db:"error"`
}

// RecordScan upserts a terminal scan result.
func (r *Repository) RecordScan(ctx context.Context, result *types.ScanResult) error {
	ctx, span := r.tracer.StartDatabaseSpan(ctx, "upsert", "scans")
	defer span.End()

	platforms, err := json.Marshal(result.Platforms)
	if err != nil {
		return errors.NewInternalError("failed to serialize platforms").WithCause(err)
	}

	row := scanRow{
		ID:        result.ID,
		UserID:    result.UserID,
		Platforms: platforms,
		Status:    string(result.Status),
		StartTime: result.StartTime,
	}
	if result.EndTime != nil {
		row.EndTime = sql.NullTime{Time: *result.EndTime, Valid: true}
	}
	if result.Error != "" {
		row.Error = sql.NullString{String: result.Error, Valid: true}
	}
	if result.Metrics != nil {
		metricsJSON, err := json.Marshal(result.Metrics)
		if err != nil {
			return errors.NewInternalError("failed to serialize scan metrics").WithCause(err)
		}
		row.Metrics = metricsJSON
		row.TotalPosts = sql.NullInt64{Int64: int64(result.Metrics.TotalPosts), Valid: true}
		row.AverageEngagement = sql.NullFloat64{Float64: result.Metrics.AverageEngagement, Valid: true}
	}

	query := `
		INSERT INTO scans (id, user_id, platforms, status, start_time, end_time,
			total_posts, average_engagement, metrics, error)
		VALUES (:id, :user_id, :platforms, :status, :start_time, :end_time,
			:total_posts, :average_engagement, :metrics, :error)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			end_time = EXCLUDED.end_time,
			total_posts = EXCLUDED.total_posts,
			average_engagement = EXCLUDED.average_engagement,
			metrics = EXCLUDED.metrics,
			error = EXCLUDED.error`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		r.tracer.RecordError(span, err)
		return errors.NewInternalError("failed to record scan").WithCause(err)
	}
	return nil
}

// RecentScans returns the user's most recent archived scans, newest first.
func (r *Repository) RecentScans(ctx context.Context, userID string, limit int) ([]types.ScanResult, error) {
	ctx, span := r.tracer.StartDatabaseSpan(ctx, "select", "scans")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}

	var rows []scanRow
	query := `
		SELECT id, user_id, platforms, status, start_time, end_time,
			total_posts, average_engagement, metrics, error
		FROM scans
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		r.tracer.RecordError(span, err)
		return nil, errors.NewInternalError("failed to query scan history").WithCause(err)
	}

	results := make([]types.ScanResult, 0, len(rows))
	for _, row := range rows {
		result, err := row.toResult()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (row scanRow) toResult() (types.ScanResult, error) {
	result := types.ScanResult{
		ID:        row.ID,
		UserID:    row.UserID,
		Status:    types.ScanStatus(row.Status),
		StartTime: row.StartTime,
	}
	if len(row.Platforms) > 0 {
		if err := json.Unmarshal(row.Platforms, &result.Platforms); err != nil {
			return result, errors.NewInternalError("failed to deserialize platforms").WithCause(err)
		}
	}
	if row.EndTime.Valid {
		t := row.EndTime.Time
		result.EndTime = &t
	}
	if row.Error.Valid {
		result.Error = row.Error.String
	}
	if len(row.Metrics) > 0 {
		var m types.ScanMetrics
		if err := json.Unmarshal(row.Metrics, &m); err != nil {
			return result, errors.NewInternalError("failed to deserialize scan metrics").WithCause(err)
		}
		result.Metrics = &m
	}
	return result, nil
}

// Health checks the database connection.
func (r *Repository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.NewInternalError("database health check failed").WithCause(err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}
