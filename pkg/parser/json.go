// pkg/parser/json.go
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/greenview/ingress/pkg/model"
)

// ParseJSON decodes a JSON upload. A top-level array of objects is used
// directly; a top-level object is searched in document order for its
// first array-valued property (envelope pattern); an object with no array
// properties is wrapped as a one-row dataset. An empty resulting row set
// is an error, not an empty success.
func ParseJSON(r io.Reader, fileSize int64) (*model.ProcessedData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("failed to parse JSON: file is empty")
	}

	var (
		rows    []model.Row
		headers []string
	)

	switch trimmed[0] {
	case '[':
		rows, headers, err = decodeRowArray(trimmed)
	case '{':
		rows, headers, err = decodeEnvelope(trimmed)
	default:
		return nil, errors.New("JSON file must contain an array of objects or an object with array properties")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(rows) == 0 {
		return nil, errors.New("JSON file contains no data")
	}

	return buildProcessedData(headers, rows, fileSize), nil
}

// decodeRowArray decodes a JSON array of objects, preserving the first
// object's key order for the header list.
func decodeRowArray(raw []byte) ([]model.Row, []string, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, nil, err
	}

	rows := make([]model.Row, 0, len(elems))
	for i, elem := range elems {
		var row model.Row
		if err := json.Unmarshal(elem, &row); err != nil {
			return nil, nil, fmt.Errorf("element %d is not an object: %w", i, err)
		}
		rows = append(rows, row)
	}

	var headers []string
	if len(elems) > 0 {
		var err error
		headers, err = objectKeys(elems[0])
		if err != nil {
			return nil, nil, err
		}
	}

	return rows, headers, nil
}

// decodeEnvelope walks a top-level object's properties in document order
// and uses the first array-valued property as the row set. An object with
// no array properties becomes a single-row dataset.
func decodeEnvelope(raw []byte) ([]model.Row, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if tok != json.Delim('{') {
		return nil, nil, errors.New("expected a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("property %v: %w", keyTok, err)
		}

		if v := bytes.TrimSpace(value); len(v) > 0 && v[0] == '[' {
			return decodeRowArray(v)
		}
	}

	// No array property: wrap the whole object as one row.
	var row model.Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, nil, err
	}
	headers, err := objectKeys(raw)
	if err != nil {
		return nil, nil, err
	}
	return []model.Row{row}, headers, nil
}

// objectKeys returns an object's keys in document order. Go maps do not
// preserve insertion order, so the header list has to come from a token
// scan of the original bytes.
func objectKeys(obj []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, errors.New("expected a JSON object")
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}

	return keys, nil
}
