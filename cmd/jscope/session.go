package main

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/vanderheijden86/jointscope/internal/datasource"
	"github.com/vanderheijden86/jointscope/pkg/builder"
	"github.com/vanderheijden86/jointscope/pkg/debug"
	"github.com/vanderheijden86/jointscope/pkg/hooks"
	"github.com/vanderheijden86/jointscope/pkg/loader"
	"github.com/vanderheijden86/jointscope/pkg/model"
	"github.com/vanderheijden86/jointscope/pkg/watcher"
)

// session owns the open documents and the registry the controller builds
// from. It implements ui.Documents.
type session struct {
	paths  []string
	reg    *model.Registry
	host   *builder.HostFlags
	logger *log.Logger
	retry  watcher.ReloadOptions

	// noHooks skips .jscope/hooks.yaml around saves.
	noHooks bool

	mu      sync.Mutex
	results []loader.LoadResult
}

func newSession(paths []string, host *builder.HostFlags, logger *log.Logger) *session {
	return &session{
		paths:  paths,
		reg:    model.NewRegistry(),
		host:   host,
		logger: logger,
		retry:  watcher.DefaultReloadOptions(),
	}
}

type loaded struct {
	managers []*model.Manager
	results  []loader.LoadResult
}

func (s *session) load(ctx context.Context) (loaded, error) {
	l := loader.NewAggregateLoader(s.paths, datasource.LoadPath)
	l.SetLogger(s.logger)
	ms, results, err := l.LoadAll(ctx)
	return loaded{managers: ms, results: results}, err
}

// Open loads every document into the registry.
func (s *session) Open(ctx context.Context) error {
	got, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.swap(got)
	return nil
}

// Reload re-reads the documents, retrying while a writer is still busy, and
// swaps the managers in place. Handles to the old managers go stale.
func (s *session) Reload(ctx context.Context) error {
	defer debug.LogEnterExit("session.Reload")()

	got, err := watcher.Reload(ctx, s.retry, s.load)
	if err != nil {
		return err
	}
	s.swap(got)
	return nil
}

func (s *session) swap(got loaded) {
	s.host.Collecting.Store(true)
	defer s.host.Collecting.Store(false)

	debug.Section("session.swap")
	debug.Assert(len(got.results) == len(s.paths), "one load result per document")
	s.reg.Replace(got.managers)
	s.mu.Lock()
	s.results = got.results
	s.mu.Unlock()
	debug.Log("session: %d managers from %d documents", len(got.managers), len(got.results))
}

// Save writes changed back to the documents their managers came from.
// Documents without changes are left alone.
func (s *session) Save(ctx context.Context, changed []*model.Field) error {
	s.mu.Lock()
	results := s.results
	s.mu.Unlock()

	doc := make(map[*model.Manager]int)
	for i, r := range results {
		for _, m := range r.Managers {
			doc[m] = i
		}
	}
	touched := make(map[int][]*model.Field)
	for _, f := range changed {
		o := f.Owner()
		if o == nil {
			continue
		}
		if i, ok := doc[o.Manager()]; ok {
			touched[i] = append(touched[i], f)
		}
	}

	var errs []error
	for i, r := range results {
		fs, ok := touched[i]
		if !ok {
			continue
		}
		src, err := datasource.SourceForPath(r.Path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		write := func() error { return datasource.Save(ctx, src, r.Managers, fs) }
		if s.noHooks {
			err = write()
		} else {
			var exec *hooks.Executor
			exec, err = hooks.RunSave(ctx, hookDir(src.Path), hooks.SaveContext{
				Document:   src.Path,
				Format:     string(src.Type),
				FieldCount: len(fs),
				Timestamp:  time.Now(),
			}, write)
			if exec != nil {
				s.logger.Printf("%s: %s", r.Path, exec.Summary())
			}
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Printf("saved %d fields to %s", len(fs), r.Path)
	}
	return errors.Join(errs...)
}

// hookDir is the directory whose .jscope/hooks.yaml applies to path. Documents
// discovered inside .jscope share the hooks of the directory above it.
func hookDir(path string) string {
	dir := filepath.Dir(path)
	if filepath.Base(dir) == hooks.ConfigDir {
		return filepath.Dir(dir)
	}
	return dir
}
