// pkg/store/store.go

// Package store persists datasets, raw rows, normalized rows, and metric
// snapshots in a hosted PostgreSQL database. The Store interface is the
// pipeline's only view of persistence, so tests can substitute an
// in-memory implementation.
package store

import (
	"context"
	"time"

	"github.com/greenview/ingress/pkg/model"
)

// Store is the persistence boundary used by the ingestion pipeline and
// the reporting layer.
type Store interface {
	// CreateDataset inserts a dataset record and returns its assigned id.
	CreateDataset(ctx context.Context, ds *model.Dataset) (string, error)

	// MarkDatasetProcessed advances a dataset to status=processed with the
	// given processed timestamp.
	MarkDatasetProcessed(ctx context.Context, id string, at time.Time) error

	// GetDataset fetches one dataset by id. Returns nil when absent.
	GetDataset(ctx context.Context, id string) (*model.Dataset, error)

	// ListDatasets returns processed datasets, newest first. Datasets that
	// are not yet processed are never eligible for selection downstream.
	ListDatasets(ctx context.Context, limit int) ([]model.Dataset, error)

	// FindDatasetByOriginalFilename returns the newest processed dataset
	// with the exact original filename, or nil.
	FindDatasetByOriginalFilename(ctx context.Context, name string) (*model.Dataset, error)

	// FindSimilarDatasets returns processed datasets with the given row
	// count and a file size inside [minSizeMB, maxSizeMB].
	FindSimilarDatasets(ctx context.Context, rowCount int, minSizeMB, maxSizeMB float64) ([]model.Dataset, error)

	// InsertDatasetRows batch-inserts raw rows.
	InsertDatasetRows(ctx context.Context, rows []model.DatasetRow) error

	// GetDatasetRows returns a dataset's raw rows ordered by row number.
	GetDatasetRows(ctx context.Context, datasetID string) ([]model.DatasetRow, error)

	// InsertNormalizedRows batch-inserts rows keyed by canonical column.
	InsertNormalizedRows(ctx context.Context, datasetID string, rows []model.Row) error

	// GetNormalizedRows returns the most recent normalized rows across all
	// datasets, for dashboard consumption.
	GetNormalizedRows(ctx context.Context, limit int) ([]model.Row, error)

	// InsertMetrics persists a metrics snapshot.
	InsertMetrics(ctx context.Context, snapshot *model.MetricsSnapshot) error

	// GetMetrics returns the snapshot for a dataset, or nil.
	GetMetrics(ctx context.Context, datasetID string) (*model.MetricsSnapshot, error)

	// DeleteDatasetRows removes all raw rows owned by a dataset.
	DeleteDatasetRows(ctx context.Context, datasetID string) error

	// DeleteNormalizedRows removes all normalized rows owned by a dataset.
	DeleteNormalizedRows(ctx context.Context, datasetID string) error

	// DeleteMetrics removes a dataset's metric snapshots.
	DeleteMetrics(ctx context.Context, datasetID string) error

	// DeleteDataset removes the dataset record itself.
	DeleteDataset(ctx context.Context, datasetID string) error
}
