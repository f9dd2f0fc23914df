package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// JSONSource reads records from a JSON file holding either an array of
// objects or an object with a "records" array.
type JSONSource struct {
	path   string
	schema Schema
}

// NewJSONSource creates a source for the JSON file at path.
func NewJSONSource(path string, schema Schema) *JSONSource {
	return &JSONSource{path: path, schema: schema}
}

func (s *JSONSource) Name() string { return filepath.Base(s.path) }

func (s *JSONSource) Load(ctx context.Context) ([]model.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseJSON(ctx, s.Name(), f, s.schema)
}

// ParseJSON decodes records. Keys are normalised like CSV headers; numbers
// stay numeric so 9876543210 and "9876543210" still link.
func ParseJSON(ctx context.Context, name string, r io.Reader, schema Schema) ([]model.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rows, err := DecodeRows(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrInvalidInput, name, err)
	}
	return RowsToRecords(ctx, name, rows, schema)
}

// DecodeRows accepts `[{...}]` or `{"records": [{...}]}`.
func DecodeRows(data []byte) ([]map[string]model.Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	var rows []map[string]model.Value
	if data[0] == '[' {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var wrapped struct {
		Records []map[string]model.Value `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Records == nil {
		return nil, fmt.Errorf(`expected an array or an object with a "records" array`)
	}
	return wrapped.Records, nil
}

// RowsToRecords applies the schema to decoded rows.
func RowsToRecords(ctx context.Context, name string, rows []map[string]model.Value, schema Schema) ([]model.Record, error) {
	idField := schema.idField()
	records := make([]model.Record, 0, len(rows))
	present := make(map[string]bool)
	for i, row := range rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make(map[string]model.Value, len(row))
		for _, k := range keys {
			col := schema.Canonical(k)
			present[col] = true
			if _, dup := attrs[col]; !dup {
				attrs[col] = row[k]
			}
		}
		id := attrs[idField].String()
		delete(attrs, idField)
		records = append(records, model.Record{ID: id, Attributes: attrs})
	}
	if len(rows) > 0 {
		if err := schema.checkColumns(name, present); err != nil {
			return nil, err
		}
	}
	return records, nil
}
