package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/vanderheijden86/jointscope/pkg/loader"
	"github.com/vanderheijden86/jointscope/pkg/model"
)

// ErrLocked is returned when another process holds the document lock.
var ErrLocked = errors.New("document is locked by another process")

// LockTimeout bounds how long Save waits for the document lock.
var LockTimeout = 5 * time.Second

// LoadFromDir performs source detection within a document directory and
// loads the freshest valid source.
func LoadFromDir(dir string) (DataSource, []*model.Manager, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return DataSource{}, nil, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return DataSource{}, nil, fmt.Errorf("%s: %w", dir, err)
	}
	ms, err := LoadFromSource(best)
	return best, ms, err
}

// LoadFromSource loads managers from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(source DataSource) ([]*model.Manager, error) {
	switch source.Type {
	case SourceTypeSQLite:
		store, err := OpenSQLite(source, true)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer store.Close()
		return store.LoadManagers(context.Background())

	case SourceTypeJSON, SourceTypeYAML:
		return loader.LoadManagers(source.Path)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// LoadPath loads a single document file. It satisfies loader.LoadFunc.
func LoadPath(_ context.Context, path string) ([]*model.Manager, error) {
	src, err := SourceForPath(path)
	if err != nil {
		return nil, &loader.LoadError{Path: path, Cause: err}
	}
	return LoadFromSource(src)
}

// Save writes the edits back to source while holding an exclusive lock on
// it. SQLite sources get the changed field values only; JSON and YAML
// sources are re-encoded from ms.
func Save(ctx context.Context, source DataSource, ms []*model.Manager, changed []*model.Field) error {
	lock := flock.New(source.Path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", source.Path, ErrLocked)
		}
		return fmt.Errorf("lock %s: %w", source.Path, err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", source.Path, ErrLocked)
	}
	defer lock.Unlock()

	switch source.Type {
	case SourceTypeSQLite:
		store, err := OpenSQLite(source, false)
		if err != nil {
			return err
		}
		defer store.Close()
		owned := make(map[*model.Manager]bool, len(ms))
		for _, m := range ms {
			owned[m] = true
		}
		var mine []*model.Field
		for _, f := range changed {
			if o := f.Owner(); o != nil && owned[o.Manager()] {
				mine = append(mine, f)
			}
		}
		_, err = store.UpdateFields(ctx, mine)
		return err

	case SourceTypeJSON, SourceTypeYAML:
		return loader.Save(source.Path, loader.FromManagers(ms))

	default:
		return fmt.Errorf("unknown source type: %s", source.Type)
	}
}
