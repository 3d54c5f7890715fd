// pkg/parser/csv.go

// Package parser turns uploaded files into (headers, rows) plus inferred
// column types. Delimited text and JSON are supported; spreadsheet binary
// formats are rejected upstream before a parser is ever selected.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/greenview/ingress/pkg/model"
)

// ParseCSV decodes delimited text. The header row defines field names,
// blank lines are skipped, and the first structural error aborts the
// parse with no partial success.
func ParseCSV(r io.Reader, fileSize int64) (*model.ProcessedData, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV parsing error: file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("CSV parsing error: %w", err)
	}

	var rows []model.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV parsing error: %w", err)
		}

		row := make(model.Row, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = model.String(record[i])
			}
		}
		rows = append(rows, row)
	}

	return buildProcessedData(headers, rows, fileSize), nil
}

// buildProcessedData assembles the parser output and runs type inference
// over it.
func buildProcessedData(headers []string, rows []model.Row, fileSize int64) *model.ProcessedData {
	return &model.ProcessedData{
		Headers: headers,
		Rows:    rows,
		Summary: model.Summary{
			TotalRows: len(rows),
			Columns:   len(headers),
			FileSize:  fileSize,
			DataTypes: InferTypes(rows, headers),
		},
	}
}
