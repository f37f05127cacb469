package loader

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

// LoadFunc loads the managers of one document.
type LoadFunc func(ctx context.Context, path string) ([]*model.Manager, error)

// LoadResult contains the result of loading a single document
type LoadResult struct {
	Path     string
	Managers []*model.Manager
	// Error is set if loading failed
	Error error
}

// AggregateLoader loads managers from several documents at once.
type AggregateLoader struct {
	paths  []string
	load   LoadFunc
	limit  int
	logger *log.Logger
}

// NewAggregateLoader creates a loader over paths. A nil load uses LoadManagers.
func NewAggregateLoader(paths []string, load LoadFunc) *AggregateLoader {
	if load == nil {
		load = func(_ context.Context, path string) ([]*model.Manager, error) {
			return LoadManagers(path)
		}
	}
	return &AggregateLoader{
		paths: paths,
		load:  load,
		limit: 8,
		// Silence by default. Callers can opt-in via SetLogger.
		logger: log.New(io.Discard, "", 0),
	}
}

// SetLogger sets a custom logger for error reporting
func (l *AggregateLoader) SetLogger(logger *log.Logger) {
	l.logger = logger
}

// LoadAll loads every document in parallel and merges the managers in path
// order. A manager whose name is already taken is qualified with its
// document's stem. Failed documents are logged and skipped; an error is
// returned only when every document failed.
func (l *AggregateLoader) LoadAll(ctx context.Context) ([]*model.Manager, []LoadResult, error) {
	if len(l.paths) == 0 {
		return nil, nil, fmt.Errorf("no documents to load")
	}

	results := make([]LoadResult, len(l.paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)
	for i, path := range l.paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = LoadResult{Path: path, Error: err}
				return nil
			}
			ms, err := l.load(ctx, path)
			results[i] = LoadResult{Path: path, Managers: ms, Error: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, results, fmt.Errorf("fatal error during parallel loading: %w", err)
	}

	var all []*model.Manager
	taken := make(map[string]bool)
	failed := 0
	var firstErr error
	for _, r := range results {
		if r.Error != nil {
			l.logger.Printf("failed to load %s: %v", r.Path, r.Error)
			failed++
			if firstErr == nil {
				firstErr = r.Error
			}
			continue
		}
		for _, m := range r.Managers {
			if taken[m.Name] {
				m.DocName = m.Name
				m.Name = uniqueName(QualifyName(m.Name, r.Path), taken)
			}
			taken[m.Name] = true
			all = append(all, m)
		}
	}
	l.logger.Printf("Finished parallel loading of %d documents (%d failed)", len(l.paths), failed)
	if failed == len(l.paths) {
		return nil, results, firstErr
	}
	return all, results, nil
}

// QualifyName prefixes name with the stem of the document at path.
func QualifyName(name, path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem == "" || strings.HasPrefix(name, stem+".") {
		return name
	}
	return stem + "." + name
}

// uniqueName returns name, or name with the first free "#n" suffix when name
// is already taken.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for n := 2; ; n++ {
		if c := name + "#" + strconv.Itoa(n); !taken[c] {
			return c
		}
	}
}
