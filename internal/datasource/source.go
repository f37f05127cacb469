// Package datasource discovers, validates and selects node-graph documents.
// A directory may hold the same graph as a SQLite database and as JSON or
// YAML exports; the freshest valid one wins, with priority breaking ties.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/jointscope/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	SourceTypeSQLite SourceType = "sqlite"
	SourceTypeJSON   SourceType = "json"
	SourceTypeYAML   SourceType = "yaml"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSON   = 80
	PriorityYAML   = 50
)

// ErrNoValidSource is returned when discovery finds nothing loadable.
var ErrNoValidSource = errors.New("no valid document source")

// DataSource represents a potential source of node-graph data
type DataSource struct {
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int       `json:"priority"`
	ModTime  time.Time `json:"mod_time"`
	Valid    bool      `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// ManagerCount is set during validation
	ManagerCount int   `json:"manager_count"`
	Size         int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, managers=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.ManagerCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the document directory (optional, see loader.GetDocumentDir)
	Dir string
	// RepoPath is the repository root path (optional, uses cwd if empty)
	RepoPath               string
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	Verbose        bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// typeForPath maps a file name to its source type and priority.
func typeForPath(path string) (SourceType, int, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, PrioritySQLite, true
	case ".json":
		return SourceTypeJSON, PriorityJSON, true
	case ".yaml", ".yml":
		return SourceTypeYAML, PriorityYAML, true
	}
	return "", 0, false
}

// skipName reports backup and scratch files that must never be loaded.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.Contains(name, ".backup") ||
		strings.Contains(name, ".orig") ||
		strings.HasSuffix(name, "-journal") ||
		strings.HasSuffix(name, "-wal") ||
		strings.HasSuffix(name, "-shm")
}

// SourceForPath describes a single file without validating it.
func SourceForPath(path string) (DataSource, error) {
	typ, prio, ok := typeForPath(path)
	if !ok {
		return DataSource{}, fmt.Errorf("%s: %w", path, loader.ErrUnsupportedFormat)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return DataSource{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, err
	}
	return DataSource{
		Type:     typ,
		Path:     abs,
		Priority: prio,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoverSources finds all potential data sources in the document directory,
// freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = loader.GetDocumentDir(opts.RepoPath)
		if err != nil {
			return nil, err
		}
	}
	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || skipName(e.Name()) {
			continue
		}
		if _, _, ok := typeForPath(e.Name()); !ok {
			continue
		}
		src, err := SourceForPath(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		sources = append(sources, src)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", src.Type, src.Path, src.ModTime.Format(time.RFC3339)))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			var valid []DataSource
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)
	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

// sortSources orders by freshness, then priority.
func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

// ValidateSource loads the source once and records whether it is usable.
func ValidateSource(s *DataSource) error {
	s.Valid = false
	s.ValidationError = ""
	if s.Size == 0 {
		s.ValidationError = "empty file"
		return errors.New(s.ValidationError)
	}
	ms, err := LoadFromSource(*s)
	if err != nil {
		s.ValidationError = err.Error()
		return err
	}
	s.ManagerCount = len(ms)
	s.Valid = true
	return nil
}

// SelectBestSource returns the freshest valid source, preferring higher
// priority when modification times are equal.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, ErrNoValidSource
	}
	sortSources(valid)
	return valid[0], nil
}
