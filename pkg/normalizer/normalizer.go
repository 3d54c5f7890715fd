// pkg/normalizer/normalizer.go
package normalizer

import (
	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/model"
)

// Normalizer rewrites raw uploaded rows into the canonical sustainability
// schema using the static synonym table.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a Normalizer.
func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// BuildColumnMapping resolves each uploaded header against the synonym
// table. The result maps source header -> canonical column; unmappable
// headers are simply absent.
func (n *Normalizer) BuildColumnMapping(headers []string) map[string]string {
	mapping := make(map[string]string)
	for _, header := range headers {
		if canonical, ok := MapColumn(header); ok {
			mapping[header] = canonical
		}
	}

	if len(mapping) == 0 {
		n.logger.Info("No mappable sustainability columns found",
			zap.Strings("headers", headers))
	}

	return mapping
}

// NormalizeRows rewrites rows into canonical columns using a mapping from
// BuildColumnMapping. Rows with zero mappable values are dropped, so the
// result is not guaranteed 1:1 with the input.
func (n *Normalizer) NormalizeRows(mapping map[string]string, rows []model.Row) []model.Row {
	if len(mapping) == 0 {
		return nil
	}

	normalized := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		out := make(model.Row)
		for source, canonical := range mapping {
			coerced, present := CoerceValue(canonical, row[source])
			if present {
				out[canonical] = coerced
			}
		}
		if len(out) > 0 {
			normalized = append(normalized, out)
		}
	}

	return normalized
}
