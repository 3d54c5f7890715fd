// pkg/model/processed.go
package model

// TypeTag is an inferred column type.
type TypeTag string

const (
	TypeNumber TypeTag = "number"
	TypeDate   TypeTag = "date"
	TypeText   TypeTag = "text"
)

// ProcessedData is the output of a file parser: the header list, every
// parsed row, and summary information including inferred column types.
type ProcessedData struct {
	Headers []string
	Rows    []Row
	Summary Summary
}

// Summary describes the shape of a parsed file.
type Summary struct {
	TotalRows int
	Columns   int
	FileSize  int64
	// DataTypes maps header -> inferred type. Headers with no non-empty
	// sampled values are absent; callers treat missing as text.
	DataTypes map[string]TypeTag
}

// Sample returns up to the first n rows, for dataset previews.
func (p *ProcessedData) Sample(n int) []Row {
	if len(p.Rows) < n {
		n = len(p.Rows)
	}
	return p.Rows[:n]
}
