// pkg/metrics/metrics.go

// Package metrics computes sustainability aggregates from parsed and
// normalized rows. Two distinct scores live here: the snapshot score
// persisted once per ingestion, and the display score recomputed on
// demand for the dashboard. They use different formulas on purpose and
// must not be merged.
package metrics

import (
	"math"
	"strconv"
	"strings"

	"github.com/greenview/ingress/pkg/model"
	"github.com/greenview/ingress/pkg/normalizer"
)

// sustainabilityKeywords gate snapshot generation: a dataset with no
// recognizable sustainability column produces no snapshot at all.
var sustainabilityKeywords = []string{
	"energy", "co2", "carbon", "emissions",
	"renewable", "water", "waste", "recycled",
}

// HasSustainabilitySignals reports whether any header mentions a
// sustainability concept. Matching is case-insensitive substring search
// so "Total_CO2_Emissions_kg" and "Renewable %" both qualify.
func HasSustainabilitySignals(headers []string) bool {
	for _, h := range headers {
		lowered := strings.ToLower(h)
		for _, kw := range sustainabilityKeywords {
			if strings.Contains(lowered, kw) {
				return true
			}
		}
	}
	return false
}

// numberField extracts a numeric value from a row by canonical column,
// falling back to synonym matching on the row's own keys so both raw and
// normalized rows work. The second return is false when the field is
// absent or not interpretable as a number.
func numberField(row model.Row, canonical string) (float64, bool) {
	if v, ok := row[canonical]; ok {
		return asNumber(v)
	}
	for key, v := range row {
		if mapped, ok := normalizer.MapColumn(key); ok && mapped == canonical {
			return asNumber(v)
		}
	}
	return 0, false
}

// stringField extracts a text value the same way.
func stringField(row model.Row, canonical string) (string, bool) {
	if v, ok := row[canonical]; ok && !v.IsNull() {
		return v.AsString(), true
	}
	for key, v := range row {
		if mapped, ok := normalizer.MapColumn(key); ok && mapped == canonical && !v.IsNull() {
			return v.AsString(), true
		}
	}
	return "", false
}

func asNumber(v model.Value) (float64, bool) {
	switch v.Kind {
	case model.KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return 0, false
		}
		return v.Num, true
	case model.KindString:
		cleaned := strings.ReplaceAll(strings.TrimSpace(v.Str), ",", "")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
