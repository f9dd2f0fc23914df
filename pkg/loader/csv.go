package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// CSVSource reads records from a CSV file with a header row.
type CSVSource struct {
	path   string
	schema Schema
}

// NewCSVSource creates a source for the CSV file at path.
func NewCSVSource(path string, schema Schema) *CSVSource {
	return &CSVSource{path: path, schema: schema}
}

func (s *CSVSource) Name() string { return filepath.Base(s.path) }

func (s *CSVSource) Load(ctx context.Context) ([]model.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCSV(ctx, s.Name(), f, s.schema)
}

// ParseCSV reads a header row and one record per following row. Every cell
// becomes a text value; blank rows are skipped and short rows are padded
// with blanks. The separator is a comma unless the header only splits on
// semicolons.
func ParseCSV(ctx context.Context, name string, r io.Reader, schema Schema) ([]model.Record, error) {
	log := logging.New("loader.csv")
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = detectSeparator(first)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s has no header row", model.ErrInvalidInput, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		columns[i] = schema.Canonical(h)
		present[columns[i]] = true
	}
	if err := schema.checkColumns(name, present); err != nil {
		return nil, err
	}
	idField := schema.idField()

	var records []model.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", model.ErrInvalidInput, name, line, err)
		}
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blankRow(row) {
			continue
		}

		attrs := make(map[string]model.Value, len(columns))
		for i, col := range columns {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			// First occurrence wins when two headers map to the same attribute.
			if _, dup := attrs[col]; dup {
				continue
			}
			attrs[col] = model.Text(cell)
		}
		id := attrs[idField].String()
		delete(attrs, idField)
		records = append(records, model.Record{ID: id, Attributes: attrs})
	}

	log.Debug("parsed csv", "source", name, "records", len(records), "columns", len(columns))
	return records, nil
}

func detectSeparator(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
