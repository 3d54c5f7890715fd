// pkg/model/dataset.go
package model

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// DatasetStatus tracks the lifecycle of an uploaded dataset.
// Transitions only move forward: uploading -> processing -> processed.
// Failed ingestions are compensated (deleted), so "failed" never persists.
type DatasetStatus string

const (
	StatusUploading  DatasetStatus = "uploading"
	StatusProcessing DatasetStatus = "processing"
	StatusProcessed  DatasetStatus = "processed"
	StatusFailed     DatasetStatus = "failed"
)

// Dataset is the tracked metadata for one uploaded file.
type Dataset struct {
	ID               string         `db:"id" json:"id"`
	Filename         string         `db:"filename" json:"filename"`
	OriginalFilename string         `db:"original_filename" json:"original_filename"`
	FileSizeMB       float64        `db:"file_size_mb" json:"file_size_mb"`
	FileType         string         `db:"file_type" json:"file_type"`
	SourceType       string         `db:"source_type" json:"source_type"`
	Columns          pq.StringArray `db:"columns" json:"columns"`
	RowsCount        int            `db:"rows_count" json:"rows_count"`
	SampleData       types.JSONText `db:"sample_data" json:"sample_data"`
	SummaryStats     types.JSONText `db:"summary_stats" json:"summary_stats"`
	Status           DatasetStatus  `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	ProcessedAt      *time.Time     `db:"processed_at" json:"processed_at"`
}

// DatasetRow is one raw ingested record, stored exactly as parsed.
// Row numbers are 1-based, dense, and assigned in file order.
type DatasetRow struct {
	DatasetID string `db:"dataset_id" json:"dataset_id"`
	RowNumber int    `db:"row_number" json:"row_number"`
	Data      Row    `db:"data" json:"data"`
}

// SummaryStats is the summary-stats blob stored alongside a dataset.
type SummaryStats struct {
	DataTypes    map[string]TypeTag `json:"dataTypes"`
	TotalColumns int                `json:"totalColumns"`
	FileSize     int64              `json:"fileSize"`
}
