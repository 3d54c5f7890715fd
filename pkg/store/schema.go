// pkg/store/schema.go
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/normalizer"
)

// EnsureSchema creates the ingestion tables if they do not exist yet.
// The sustainability_table columns are generated from the canonical
// column list so the schema and the normalizer can never drift apart.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			file_size_mb DOUBLE PRECISION NOT NULL DEFAULT 0,
			file_type TEXT NOT NULL,
			source_type TEXT NOT NULL DEFAULT 'file_upload',
			columns TEXT[] NOT NULL DEFAULT '{}',
			rows_count INTEGER NOT NULL DEFAULT 0,
			sample_data JSONB,
			summary_stats JSONB,
			status TEXT NOT NULL DEFAULT 'uploading',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_status_created
			ON datasets (status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_original_filename
			ON datasets (original_filename)`,

		`CREATE TABLE IF NOT EXISTS dataset_data (
			id BIGSERIAL PRIMARY KEY,
			dataset_id UUID NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			row_number INTEGER NOT NULL,
			data JSONB NOT NULL,
			UNIQUE (dataset_id, row_number)
		)`,

		sustainabilityTableDDL(),
		`CREATE INDEX IF NOT EXISTS idx_sustainability_dataset
			ON sustainability_table (dataset_id)`,

		`CREATE TABLE IF NOT EXISTS sustainability_metrics (
			id BIGSERIAL PRIMARY KEY,
			dataset_id UUID NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			total_energy_mwh DOUBLE PRECISION NOT NULL DEFAULT 0,
			renewable_energy_mwh DOUBLE PRECISION NOT NULL DEFAULT 0,
			co2_emissions_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
			carbon_footprint DOUBLE PRECISION NOT NULL DEFAULT 0,
			renewable_share DOUBLE PRECISION NOT NULL DEFAULT 0,
			energy_efficiency DOUBLE PRECISION NOT NULL DEFAULT 0,
			sustainability_score INTEGER NOT NULL DEFAULT 0,
			total_suppliers INTEGER NOT NULL DEFAULT 0,
			additional_metrics JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_dataset
			ON sustainability_metrics (dataset_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	s.logger.Info("Database schema verified",
		zap.Int("canonical_columns", len(normalizer.CanonicalColumns)))
	return nil
}

// sustainabilityTableDDL builds the normalized-table DDL from the
// canonical column list. Measurement columns are DOUBLE PRECISION,
// identity columns TEXT, and every canonical column is nullable since
// uploads are sparse.
func sustainabilityTableDDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS sustainability_table (\n")
	b.WriteString("\tid BIGSERIAL PRIMARY KEY,\n")
	b.WriteString("\tdataset_id UUID NOT NULL REFERENCES datasets(id) ON DELETE CASCADE")
	for _, c := range normalizer.CanonicalColumns {
		sqlType := "TEXT"
		if normalizer.IsNumericColumn(c) {
			sqlType = "DOUBLE PRECISION"
		}
		fmt.Fprintf(&b, ",\n\t%s %s", pq.QuoteIdentifier(c), sqlType)
	}
	b.WriteString("\n)")
	return b.String()
}
