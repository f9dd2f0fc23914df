package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// FindRecordFiles walks dir and returns every .csv and .json file in
// lexical order, skipping hidden directories.
func FindRecordFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsRecordFile(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// IsRecordFile reports whether path has a loadable extension.
func IsRecordFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
		return true
	}
	return false
}

// OpenPath returns a source for a single CSV or JSON file, or for every
// record file under a directory.
func OpenPath(path string, schema Schema) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return openFile(path, schema)
	}

	files, err := FindRecordFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no .csv or .json files under %s", model.ErrInvalidInput, path)
	}
	sources := make([]Source, 0, len(files))
	for _, f := range files {
		src, err := openFile(f, schema)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return &MultiSource{name: filepath.Base(filepath.Clean(path)), sources: sources}, nil
}

func openFile(path string, schema Schema) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVSource(path, schema), nil
	case ".json":
		return NewJSONSource(path, schema), nil
	}
	return nil, fmt.Errorf("%w: unsupported input %s (want .csv or .json)", model.ErrInvalidInput, path)
}

// MultiSource concatenates several sources in order. Identifiers must be
// unique across all of them.
type MultiSource struct {
	name    string
	sources []Source
}

func (m *MultiSource) Name() string { return m.name }

func (m *MultiSource) Load(ctx context.Context) ([]model.Record, error) {
	var all []model.Record
	for _, s := range m.sources {
		records, err := s.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		all = append(all, records...)
	}
	return all, nil
}

// Paths lists the files behind a source, for watching.
func Paths(s Source) []string {
	switch v := s.(type) {
	case *CSVSource:
		return []string{v.path}
	case *JSONSource:
		return []string{v.path}
	case *MultiSource:
		var out []string
		for _, inner := range v.sources {
			out = append(out, Paths(inner)...)
		}
		return out
	}
	return nil
}

// PathSource resolves its path again on every Load, so files added to or
// removed from a watched directory take effect on the next run.
type PathSource struct {
	path   string
	schema Schema
}

// NewPathSource checks that path can be opened and returns a source for it.
func NewPathSource(path string, schema Schema) (*PathSource, error) {
	if _, err := OpenPath(path, schema); err != nil {
		return nil, err
	}
	return &PathSource{path: path, schema: schema}, nil
}

func (p *PathSource) Name() string { return filepath.Base(filepath.Clean(p.path)) }

func (p *PathSource) Load(ctx context.Context) ([]model.Record, error) {
	src, err := OpenPath(p.path, p.schema)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}
