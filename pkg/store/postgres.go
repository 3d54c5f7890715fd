// pkg/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/config"
	"github.com/greenview/ingress/pkg/model"
	"github.com/greenview/ingress/pkg/normalizer"
)

// PostgresStore implements Store against the hosted PostgreSQL database.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresStore connects to PostgreSQL, configures the connection
// pool, and verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	s := &PostgresStore{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return s, nil
}

// DB returns the underlying database handle.
func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(s.logger, s.cfg.Database, s.db.DB)
	return s.db.Close()
}

// CreateDataset inserts a dataset record and returns its assigned id.
func (s *PostgresStore) CreateDataset(ctx context.Context, ds *model.Dataset) (string, error) {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO datasets
		(id, filename, original_filename, file_size_mb, file_type, source_type,
		 columns, rows_count, sample_data, summary_stats, status, created_at)
		VALUES
		(:id, :filename, :original_filename, :file_size_mb, :file_type, :source_type,
		 :columns, :rows_count, :sample_data, :summary_stats, :status, :created_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, ds); err != nil {
		return "", fmt.Errorf("failed to insert dataset record: %w", err)
	}

	return ds.ID, nil
}

// MarkDatasetProcessed advances a dataset to status=processed.
func (s *PostgresStore) MarkDatasetProcessed(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE datasets
		SET status = $1, processed_at = $2
		WHERE id = $3
	`
	if _, err := s.db.ExecContext(ctx, query, model.StatusProcessed, at, id); err != nil {
		return fmt.Errorf("failed to mark dataset processed: %w", err)
	}
	return nil
}

// GetDataset fetches one dataset by id.
func (s *PostgresStore) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	var ds model.Dataset
	err := s.db.GetContext(ctx, &ds, `SELECT * FROM datasets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	return &ds, nil
}

// ListDatasets returns processed datasets, newest first.
func (s *PostgresStore) ListDatasets(ctx context.Context, limit int) ([]model.Dataset, error) {
	var datasets []model.Dataset
	const query = `
		SELECT * FROM datasets
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := s.db.SelectContext(ctx, &datasets, query, model.StatusProcessed, limit); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

// FindDatasetByOriginalFilename returns the newest processed dataset with
// the exact original filename, or nil.
func (s *PostgresStore) FindDatasetByOriginalFilename(ctx context.Context, name string) (*model.Dataset, error) {
	var ds model.Dataset
	const query = `
		SELECT * FROM datasets
		WHERE original_filename = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := s.db.GetContext(ctx, &ds, query, name, model.StatusProcessed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset by filename: %w", err)
	}
	return &ds, nil
}

// FindSimilarDatasets returns processed datasets with the same row count
// and a file size inside the given bounds.
func (s *PostgresStore) FindSimilarDatasets(ctx context.Context, rowCount int, minSizeMB, maxSizeMB float64) ([]model.Dataset, error) {
	var datasets []model.Dataset
	const query = `
		SELECT * FROM datasets
		WHERE status = $1 AND rows_count = $2
		  AND file_size_mb >= $3 AND file_size_mb <= $4
		ORDER BY created_at DESC
	`
	if err := s.db.SelectContext(ctx, &datasets, query, model.StatusProcessed, rowCount, minSizeMB, maxSizeMB); err != nil {
		return nil, fmt.Errorf("failed to query similar datasets: %w", err)
	}
	return datasets, nil
}

// InsertDatasetRows batch-inserts raw rows in a single statement.
func (s *PostgresStore) InsertDatasetRows(ctx context.Context, rows []model.DatasetRow) error {
	if len(rows) == 0 {
		return nil
	}

	const query = `
		INSERT INTO dataset_data (dataset_id, row_number, data)
		VALUES (:dataset_id, :row_number, :data)
	`
	if _, err := s.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("failed to insert dataset rows: %w", err)
	}
	return nil
}

// GetDatasetRows returns a dataset's raw rows ordered by row number.
func (s *PostgresStore) GetDatasetRows(ctx context.Context, datasetID string) ([]model.DatasetRow, error) {
	var rows []model.DatasetRow
	const query = `
		SELECT dataset_id, row_number, data FROM dataset_data
		WHERE dataset_id = $1
		ORDER BY row_number ASC
	`
	if err := s.db.SelectContext(ctx, &rows, query, datasetID); err != nil {
		return nil, fmt.Errorf("failed to query dataset rows: %w", err)
	}
	return rows, nil
}

// InsertNormalizedRows batch-inserts canonical rows. Missing and null
// values are both written as SQL NULL; the distinction only exists in
// memory, where it prevents empty cells from overwriting real data.
func (s *PostgresStore) InsertNormalizedRows(ctx context.Context, datasetID string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	cols := normalizer.CanonicalColumns
	colNames := make([]string, 0, len(cols)+1)
	colNames = append(colNames, "dataset_id")
	for _, c := range cols {
		colNames = append(colNames, pq.QuoteIdentifier(c))
	}

	var (
		sb   strings.Builder
		args = make([]interface{}, 0, len(rows)*(len(cols)+1))
	)
	sb.WriteString("INSERT INTO sustainability_table (")
	sb.WriteString(strings.Join(colNames, ", "))
	sb.WriteString(") VALUES ")

	placeholder := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j <= len(cols); j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", placeholder)
			placeholder++
		}
		sb.WriteString(")")

		args = append(args, datasetID)
		for _, c := range cols {
			args = append(args, canonicalArg(row, c))
		}
	}

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert normalized rows: %w", err)
	}
	return nil
}

// canonicalArg converts a canonical cell into a driver argument.
func canonicalArg(row model.Row, canonical string) interface{} {
	v, ok := row[canonical]
	if !ok || v.IsNull() {
		return nil
	}
	if normalizer.IsNumericColumn(canonical) {
		return v.Num
	}
	return v.AsString()
}

// GetNormalizedRows returns the most recent normalized rows across all
// datasets, newest timestamp first.
func (s *PostgresStore) GetNormalizedRows(ctx context.Context, limit int) ([]model.Row, error) {
	const query = `
		SELECT * FROM sustainability_table
		ORDER BY "Timestamp" DESC NULLS LAST
		LIMIT $1
	`
	dbRows, err := s.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query normalized rows: %w", err)
	}
	defer dbRows.Close()

	var rows []model.Row
	for dbRows.Next() {
		record := map[string]interface{}{}
		if err := dbRows.MapScan(record); err != nil {
			return nil, fmt.Errorf("failed to scan normalized row: %w", err)
		}
		rows = append(rows, rowFromRecord(record))
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating normalized rows: %w", err)
	}

	return rows, nil
}

// rowFromRecord converts scanned database values into the closed cell
// union, keeping only canonical columns.
func rowFromRecord(record map[string]interface{}) model.Row {
	row := make(model.Row)
	for _, c := range normalizer.CanonicalColumns {
		raw, ok := record[c]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			row[c] = model.Number(v)
		case int64:
			row[c] = model.Number(float64(v))
		case []byte:
			row[c] = model.String(string(v))
		case string:
			row[c] = model.String(v)
		case time.Time:
			row[c] = model.String(v.Format(time.RFC3339))
		}
	}
	return row
}

// InsertMetrics persists a metrics snapshot.
func (s *PostgresStore) InsertMetrics(ctx context.Context, snapshot *model.MetricsSnapshot) error {
	const query = `
		INSERT INTO sustainability_metrics
		(dataset_id, total_energy_mwh, renewable_energy_mwh, co2_emissions_kg,
		 carbon_footprint, renewable_share, energy_efficiency,
		 sustainability_score, total_suppliers, additional_metrics)
		VALUES
		(:dataset_id, :total_energy_mwh, :renewable_energy_mwh, :co2_emissions_kg,
		 :carbon_footprint, :renewable_share, :energy_efficiency,
		 :sustainability_score, :total_suppliers, :additional_metrics)
	`
	if _, err := s.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("failed to insert metrics snapshot: %w", err)
	}
	return nil
}

// GetMetrics returns the snapshot for a dataset, or nil.
func (s *PostgresStore) GetMetrics(ctx context.Context, datasetID string) (*model.MetricsSnapshot, error) {
	var snapshot model.MetricsSnapshot
	const query = `
		SELECT dataset_id, total_energy_mwh, renewable_energy_mwh, co2_emissions_kg,
		       carbon_footprint, renewable_share, energy_efficiency,
		       sustainability_score, total_suppliers, additional_metrics
		FROM sustainability_metrics
		WHERE dataset_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	err := s.db.GetContext(ctx, &snapshot, query, datasetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics snapshot: %w", err)
	}
	return &snapshot, nil
}

// DeleteDatasetRows removes all raw rows owned by a dataset.
func (s *PostgresStore) DeleteDatasetRows(ctx context.Context, datasetID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dataset_data WHERE dataset_id = $1`, datasetID); err != nil {
		return fmt.Errorf("failed to delete dataset rows: %w", err)
	}
	return nil
}

// DeleteNormalizedRows removes all normalized rows owned by a dataset.
func (s *PostgresStore) DeleteNormalizedRows(ctx context.Context, datasetID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sustainability_table WHERE dataset_id = $1`, datasetID); err != nil {
		return fmt.Errorf("failed to delete normalized rows: %w", err)
	}
	return nil
}

// DeleteMetrics removes a dataset's metric snapshots.
func (s *PostgresStore) DeleteMetrics(ctx context.Context, datasetID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sustainability_metrics WHERE dataset_id = $1`, datasetID); err != nil {
		return fmt.Errorf("failed to delete metrics snapshots: %w", err)
	}
	return nil
}

// DeleteDataset removes the dataset record itself.
func (s *PostgresStore) DeleteDataset(ctx context.Context, datasetID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, datasetID); err != nil {
		return fmt.Errorf("failed to delete dataset record: %w", err)
	}
	return nil
}
