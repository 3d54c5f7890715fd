// pkg/parser/infer.go
package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/greenview/ingress/pkg/model"
)

// sampleSize bounds how many rows the inferencer inspects per column.
const sampleSize = 100

// dateLayouts are tried in order when classifying a value as a date.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// InferTypes infers a type tag for each header by sampling up to the
// first 100 rows, dropping empty values, and classifying only the first
// surviving value. This is deliberately not a majority vote: it is simple
// and cheap, at the cost of misclassifying columns whose first value is
// unrepresentative. Headers with no non-empty sampled values get no entry
// at all; callers must treat a missing header as text.
//
// InferTypes never fails; absence of data yields absence of classification.
func InferTypes(rows []model.Row, headers []string) map[string]model.TypeTag {
	types := make(map[string]model.TypeTag)

	limit := len(rows)
	if limit > sampleSize {
		limit = sampleSize
	}

	for _, header := range headers {
		for _, row := range rows[:limit] {
			v, ok := row[header]
			if !ok || v.IsEmpty() {
				continue
			}
			types[header] = classify(v)
			break
		}
	}

	return types
}

// classify assigns a type tag to a single non-empty value. Numbers win
// over dates over text.
func classify(v model.Value) model.TypeTag {
	if v.Kind == model.KindNumber {
		return model.TypeNumber
	}

	s := strings.TrimSpace(v.Str)
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return model.TypeNumber
	}
	if isDate(s) {
		return model.TypeDate
	}
	return model.TypeText
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
