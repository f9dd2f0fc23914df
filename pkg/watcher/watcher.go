package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Pratee23389/Hack4Delhi/pkg/loader"
	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeModified ChangeType = iota
	ChangeTypeCreated
	ChangeTypeRemoved
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeModified:
		return "modified"
	case ChangeTypeCreated:
		return "created"
	case ChangeTypeRemoved:
		return "removed"
	}
	return "unknown"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

const batchWindow = 100 * time.Millisecond

// FileWatcher watches payroll input files, and every record file under
// input directories.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	inputs  []string
	files   map[string]bool
	roots   []string
	events  chan ChangeEvent
	log     *slog.Logger

	closeOnce sync.Once
}

// NewFileWatcher creates a watcher for the given files or directories.
func NewFileWatcher(inputs []string) (*FileWatcher, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("nothing to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		inputs:  inputs,
		files:   make(map[string]bool),
		events:  make(chan ChangeEvent, 100),
		log:     logging.New("watcher"),
	}, nil
}

// Start adds the watches and begins processing events until ctx is done or
// Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs, err := fw.resolveInputs()
	if err != nil {
		fw.close()
		return err
	}

	for dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			fw.log.Warn("failed to watch directory", "path", dir, "error", err)
		}
	}
	fw.log.Info("watching inputs", "inputs", len(fw.inputs), "directories", len(dirs))

	go fw.processEvents(ctx)
	return nil
}

// resolveInputs records input files and directory roots and returns the
// directories to watch.
func (fw *FileWatcher) resolveInputs() (map[string]bool, error) {
	dirs := make(map[string]bool)
	for _, input := range fw.inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to watch %s: %w", input, err)
		}
		if !info.IsDir() {
			// Editors often replace files by rename, so watch the directory.
			fw.files[abs] = true
			dirs[filepath.Dir(abs)] = true
			continue
		}
		fw.roots = append(fw.roots, abs)
		if err := collectDirs(abs, dirs); err != nil {
			return nil, err
		}
	}
	return dirs, nil
}

// collectDirs adds root and its non-hidden subdirectories to dirs.
func collectDirs(root string, dirs map[string]bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip what we can't read
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		dirs[path] = true
		return nil
	})
}

// relevant reports whether a change to path can affect the loaded records.
func (fw *FileWatcher) relevant(path string) bool {
	if fw.files[path] {
		return true
	}
	return loader.IsRecordFile(path) && fw.underRoot(path)
}

func (fw *FileWatcher) underRoot(path string) bool {
	for _, root := range fw.roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

func classify(op fsnotify.Op) (ChangeType, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeTypeRemoved, true
	case op.Has(fsnotify.Create):
		return ChangeTypeCreated, true
	case op.Has(fsnotify.Write):
		return ChangeTypeModified, true
	}
	return 0, false
}

// processEvents batches relevant events by type and forwards them.
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.close()

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() bool {
		for _, t := range []ChangeType{ChangeTypeRemoved, ChangeTypeCreated, ChangeTypeModified} {
			if len(pending[t]) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: pending[t], Timestamp: time.Now()}:
			case <-ctx.Done():
				return false
			}
		}
		pending = make(map[ChangeType][]string)
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)

			// New subdirectories of a watched input directory get their own watch.
			if event.Op.Has(fsnotify.Create) && fw.underRoot(path) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if err := fw.watcher.Add(path); err != nil {
						fw.log.Warn("failed to watch new directory", "path", path, "error", err)
					}
					continue
				}
			}

			if !fw.relevant(path) {
				continue
			}
			t, ok := classify(event.Op)
			if !ok {
				continue
			}
			fw.log.Debug("input changed", "path", path, "change", t.String())
			pending[t] = append(pending[t], path)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			if !flush() {
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	return fw.close()
}

func (fw *FileWatcher) close() error {
	var err error
	fw.closeOnce.Do(func() { err = fw.watcher.Close() })
	return err
}

// dedupe returns the unique paths in lexical order.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
