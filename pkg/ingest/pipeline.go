// pkg/ingest/pipeline.go

// Package ingest orchestrates file ingestion: validation, parsing,
// duplicate detection, chunked persistence, normalization, and metrics
// generation, with compensating deletes on failure.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/metrics"
	"github.com/greenview/ingress/pkg/model"
	"github.com/greenview/ingress/pkg/normalizer"
	"github.com/greenview/ingress/pkg/parser"
	"github.com/greenview/ingress/pkg/store"
)

// DefaultChunkSize is the number of raw rows written per insert batch.
const DefaultChunkSize = 100

// sampleRows is how many leading rows are stored as the dataset preview.
const sampleRows = 5

// Upload is one file handed to the pipeline.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Options control a single ingestion run.
type Options struct {
	// Force skips duplicate detection entirely.
	Force bool

	// OnProgress, when non-nil, receives state and percentage updates as
	// the pipeline advances.
	OnProgress func(state UploadState, progress int)
}

// Result summarizes a successful ingestion.
type Result struct {
	Dataset        *model.Dataset
	RowsWritten    int
	NormalizedRows int

	// Snapshot is nil when the dataset carried no sustainability columns
	// or when metrics persistence failed. Neither condition fails the
	// ingestion.
	Snapshot *model.MetricsSnapshot
}

// Pipeline runs uploads through parse, persist, normalize, and metrics
// stages against a single Store.
type Pipeline struct {
	store      store.Store
	normalizer *normalizer.Normalizer
	detector   *DuplicateDetector
	logger     *zap.Logger
	chunkSize  int
	now        func() time.Time
}

// NewPipeline creates an ingestion pipeline. chunkSize falls back to the
// default when non-positive.
func NewPipeline(s store.Store, logger *zap.Logger, chunkSize int) (*Pipeline, error) {
	if s == nil {
		return nil, errors.New("store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Pipeline{
		store:      s,
		normalizer: normalizer.New(logger),
		detector:   NewDuplicateDetector(s, logger),
		logger:     logger,
		chunkSize:  chunkSize,
		now:        time.Now,
	}, nil
}

// allowedExtensions are the file types the parsers can ingest.
var allowedExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".json": true,
}

// Ingest runs one upload through the full pipeline. The returned error
// is one of the typed errors in this package: UnsupportedFileTypeError
// and DuplicateError occur before anything is persisted, ParseError
// before any database write, and PersistenceError after compensation
// has removed every partial write.
func (p *Pipeline) Ingest(ctx context.Context, upload Upload, opts Options) (*Result, error) {
	progress := opts.OnProgress
	if progress == nil {
		progress = func(UploadState, int) {}
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !allowedExtensions[ext] {
		return nil, newUnsupportedFileType(ext)
	}

	progress(UploadUploading, 10)

	parsed, err := p.parse(ext, upload)
	if err != nil {
		return nil, &ParseError{Filename: upload.Filename, Err: err}
	}

	fileSizeMB := math.Round(float64(upload.Size)/1024/1024*100) / 100

	if !opts.Force {
		if match := p.detector.Check(ctx, upload.Filename, parsed.Summary.TotalRows, fileSizeMB); match != nil {
			p.logger.Info("Duplicate dataset detected",
				zap.String("filename", upload.Filename),
				zap.String("kind", string(match.Kind)),
				zap.String("matched_dataset", match.Dataset.ID))
			return nil, &DuplicateError{Kind: match.Kind, Matched: match.Dataset}
		}
	}

	progress(UploadProcessing, 40)

	ds, err := p.createDataset(ctx, upload, ext, fileSizeMB, parsed)
	if err != nil {
		return nil, &PersistenceError{Step: "dataset creation", Err: err}
	}

	p.logger.Info("Dataset record created",
		zap.String("dataset_id", ds.ID),
		zap.String("filename", ds.OriginalFilename),
		zap.Int("rows", parsed.Summary.TotalRows))

	progress(UploadProcessing, 50)

	rowsWritten, err := p.insertRawRows(ctx, ds.ID, parsed.Rows, progress)
	if err != nil {
		p.rollback(ctx, ds.ID)
		return nil, &PersistenceError{Step: "raw row insert", Err: err}
	}

	processedAt := p.now().UTC()
	if err := p.store.MarkDatasetProcessed(ctx, ds.ID, processedAt); err != nil {
		p.rollback(ctx, ds.ID)
		return nil, &PersistenceError{Step: "dataset finalize", Err: err}
	}
	ds.Status = model.StatusProcessed
	ds.ProcessedAt = &processedAt

	progress(UploadProcessing, 90)

	normalized := p.insertNormalizedRows(ctx, ds.ID, parsed)

	progress(UploadProcessing, 95)

	snapshot := p.generateMetrics(ctx, ds.ID, parsed)

	progress(UploadCompleted, 100)

	p.logger.Info("Ingestion completed",
		zap.String("dataset_id", ds.ID),
		zap.Int("rows_written", rowsWritten),
		zap.Int("normalized_rows", normalized),
		zap.Bool("metrics_generated", snapshot != nil))

	return &Result{
		Dataset:        ds,
		RowsWritten:    rowsWritten,
		NormalizedRows: normalized,
		Snapshot:       snapshot,
	}, nil
}

// parse dispatches to the parser matching the file extension.
func (p *Pipeline) parse(ext string, upload Upload) (*model.ProcessedData, error) {
	switch ext {
	case ".json":
		return parser.ParseJSON(upload.Content, upload.Size)
	default:
		return parser.ParseCSV(upload.Content, upload.Size)
	}
}

// createDataset builds and persists the dataset record. The stored
// filename is the original base name suffixed with the upload timestamp
// so re-uploads of the same file stay distinguishable.
func (p *Pipeline) createDataset(ctx context.Context, upload Upload, ext string, fileSizeMB float64, parsed *model.ProcessedData) (*model.Dataset, error) {
	base := strings.TrimSuffix(upload.Filename, filepath.Ext(upload.Filename))
	stamp := strings.ReplaceAll(p.now().UTC().Format("2006-01-02T15:04:05"), ":", "-")

	sample, err := json.Marshal(parsed.Sample(sampleRows))
	if err != nil {
		return nil, fmt.Errorf("failed to encode sample rows: %w", err)
	}

	summary, err := json.Marshal(model.SummaryStats{
		DataTypes:    parsed.Summary.DataTypes,
		TotalColumns: parsed.Summary.Columns,
		FileSize:     parsed.Summary.FileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary stats: %w", err)
	}

	ds := &model.Dataset{
		Filename:         base + "_" + stamp,
		OriginalFilename: upload.Filename,
		FileSizeMB:       fileSizeMB,
		FileType:         strings.TrimPrefix(ext, "."),
		SourceType:       "file_upload",
		Columns:          parsed.Headers,
		RowsCount:        parsed.Summary.TotalRows,
		SampleData:       sample,
		SummaryStats:     summary,
		Status:           model.StatusProcessing,
		CreatedAt:        p.now().UTC(),
	}

	if _, err := p.store.CreateDataset(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// insertRawRows writes parsed rows in chunks, reporting progress across
// the 50 to 90 percent band.
func (p *Pipeline) insertRawRows(ctx context.Context, datasetID string, rows []model.Row, progress func(UploadState, int)) (int, error) {
	total := len(rows)
	written := 0

	for start := 0; start < total; start += p.chunkSize {
		end := start + p.chunkSize
		if end > total {
			end = total
		}

		chunk := make([]model.DatasetRow, 0, end-start)
		for i := start; i < end; i++ {
			chunk = append(chunk, model.DatasetRow{
				DatasetID: datasetID,
				RowNumber: i + 1,
				Data:      rows[i],
			})
		}

		if err := p.store.InsertDatasetRows(ctx, chunk); err != nil {
			return written, fmt.Errorf("chunk starting at row %d: %w", start+1, err)
		}
		written += len(chunk)

		progress(UploadProcessing, 50+int(float64(written)/float64(total)*40))
	}

	return written, nil
}

// insertNormalizedRows maps headers onto the canonical schema and writes
// the surviving rows. Failures are logged and swallowed: the raw dataset
// is already durable and the normalized view can be rebuilt.
func (p *Pipeline) insertNormalizedRows(ctx context.Context, datasetID string, parsed *model.ProcessedData) int {
	mapping := p.normalizer.BuildColumnMapping(parsed.Headers)
	if len(mapping) == 0 {
		p.logger.Info("No canonical columns recognized, skipping normalization",
			zap.String("dataset_id", datasetID),
			zap.Strings("headers", parsed.Headers))
		return 0
	}

	normalized := p.normalizer.NormalizeRows(mapping, parsed.Rows)
	if len(normalized) == 0 {
		return 0
	}

	written := 0
	for start := 0; start < len(normalized); start += p.chunkSize {
		end := start + p.chunkSize
		if end > len(normalized) {
			end = len(normalized)
		}
		if err := p.store.InsertNormalizedRows(ctx, datasetID, normalized[start:end]); err != nil {
			p.logger.Warn("Failed to insert normalized rows, raw data remains available",
				zap.String("dataset_id", datasetID),
				zap.Int("chunk_start", start),
				zap.Error(err))
			return written
		}
		written += end - start
	}

	return written
}

// generateMetrics computes and persists a snapshot when the dataset
// carries sustainability columns. Failures are logged and swallowed.
func (p *Pipeline) generateMetrics(ctx context.Context, datasetID string, parsed *model.ProcessedData) *model.MetricsSnapshot {
	if !metrics.HasSustainabilitySignals(parsed.Headers) {
		p.logger.Debug("No sustainability columns detected, skipping metrics",
			zap.String("dataset_id", datasetID))
		return nil
	}

	snapshot := metrics.Aggregate(datasetID, parsed.Rows)
	if err := p.store.InsertMetrics(ctx, snapshot); err != nil {
		p.logger.Warn("Failed to persist metrics snapshot",
			zap.String("dataset_id", datasetID),
			zap.Error(err))
		return nil
	}

	return snapshot
}

// rollback removes every trace of a failed ingestion, children first.
// Each delete error is logged and swallowed so one failure cannot stop
// the remaining compensation steps; the caller re-raises the original
// error regardless.
func (p *Pipeline) rollback(ctx context.Context, datasetID string) {
	cleanupCtx := context.WithoutCancel(ctx)

	p.logger.Warn("Rolling back failed ingestion", zap.String("dataset_id", datasetID))

	steps := []struct {
		name string
		fn   func(context.Context, string) error
	}{
		{"dataset rows", p.store.DeleteDatasetRows},
		{"metrics snapshots", p.store.DeleteMetrics},
		{"normalized rows", p.store.DeleteNormalizedRows},
		{"dataset record", p.store.DeleteDataset},
	}

	for _, step := range steps {
		if err := step.fn(cleanupCtx, datasetID); err != nil {
			p.logger.Error("Rollback step failed",
				zap.String("dataset_id", datasetID),
				zap.String("step", step.name),
				zap.Error(err))
		}
	}
}
