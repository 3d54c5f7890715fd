// pkg/ingest/duplicate.go
package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/model"
	"github.com/greenview/ingress/pkg/store"
)

// sizeTolerance is the fractional file-size window used by the
// similar-shape rule.
const sizeTolerance = 0.10

// DuplicateMatch describes a previously ingested dataset that resembles
// the current upload.
type DuplicateMatch struct {
	Kind    DuplicateKind
	Dataset *model.Dataset
}

// DuplicateDetector checks uploads against processed datasets. Detection
// is advisory: store failures are logged and treated as no match, so a
// degraded database never blocks ingestion.
type DuplicateDetector struct {
	store  store.Store
	logger *zap.Logger
}

// NewDuplicateDetector creates a duplicate detector.
func NewDuplicateDetector(s store.Store, logger *zap.Logger) *DuplicateDetector {
	return &DuplicateDetector{store: s, logger: logger}
}

// Check applies both duplicate rules in order. Rule one matches the exact
// original filename; rule two matches the same row count with a file size
// within the tolerance window. Returns nil when no rule matches.
func (d *DuplicateDetector) Check(ctx context.Context, originalFilename string, rowCount int, fileSizeMB float64) *DuplicateMatch {
	existing, err := d.store.FindDatasetByOriginalFilename(ctx, originalFilename)
	if err != nil {
		d.logger.Warn("Duplicate check by filename failed, continuing without it",
			zap.String("filename", originalFilename),
			zap.Error(err))
	} else if existing != nil {
		return &DuplicateMatch{Kind: DuplicateExactName, Dataset: existing}
	}

	minSize := fileSizeMB * (1 - sizeTolerance)
	maxSize := fileSizeMB * (1 + sizeTolerance)
	similar, err := d.store.FindSimilarDatasets(ctx, rowCount, minSize, maxSize)
	if err != nil {
		d.logger.Warn("Duplicate check by shape failed, continuing without it",
			zap.String("filename", originalFilename),
			zap.Error(err))
		return nil
	}
	if len(similar) > 0 {
		return &DuplicateMatch{Kind: DuplicateSimilarShape, Dataset: &similar[0]}
	}

	return nil
}
