// pkg/ingest/errors.go
package ingest

import (
	"fmt"

	"github.com/greenview/ingress/pkg/model"
)

// DuplicateKind identifies which rule matched a previously ingested dataset.
type DuplicateKind string

const (
	// DuplicateExactName means a processed dataset already carries the
	// same original filename.
	DuplicateExactName DuplicateKind = "exact_name"

	// DuplicateSimilarShape means a processed dataset has the same row
	// count and a file size within ten percent.
	DuplicateSimilarShape DuplicateKind = "similar_shape"
)

// UnsupportedFileTypeError is returned before any parsing or persistence
// when the upload's extension is not ingestible.
type UnsupportedFileTypeError struct {
	Extension string
	Message   string
}

func (e *UnsupportedFileTypeError) Error() string {
	return e.Message
}

// newUnsupportedFileType builds the rejection for a given extension.
// Spreadsheet formats get a distinct message because they are recognized
// but not handled yet.
func newUnsupportedFileType(ext string) *UnsupportedFileTypeError {
	switch ext {
	case ".xlsx", ".xls":
		return &UnsupportedFileTypeError{
			Extension: ext,
			Message:   "Excel processing not yet implemented. Please use CSV or JSON files.",
		}
	default:
		return &UnsupportedFileTypeError{
			Extension: ext,
			Message:   fmt.Sprintf("Unsupported file type: %s. Please upload CSV, TXT, or JSON files.", ext),
		}
	}
}

// ParseError wraps a structural failure in the uploaded file's content.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DuplicateError is returned when the duplicate detector matches an
// existing dataset and the caller did not force the upload. It is
// advisory: retrying with force bypasses it.
type DuplicateError struct {
	Kind    DuplicateKind
	Matched *model.Dataset
}

func (e *DuplicateError) Error() string {
	when := e.Matched.CreatedAt.Format("2006-01-02 15:04")
	switch e.Kind {
	case DuplicateExactName:
		return fmt.Sprintf("a dataset named %q was already ingested on %s", e.Matched.OriginalFilename, when)
	default:
		return fmt.Sprintf("dataset %q ingested on %s has the same shape as this upload", e.Matched.OriginalFilename, when)
	}
}

// PersistenceError wraps a storage failure, recording which step of the
// pipeline it interrupted.
type PersistenceError struct {
	Step string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
