package orchestrator

import (
	"sync"

	"github.com/glorpus-work/bucketd/pkg/backend"
	"github.com/glorpus-work/bucketd/pkg/backend/database"
	"github.com/glorpus-work/bucketd/pkg/catalog"
	"github.com/glorpus-work/bucketd/pkg/config"
	"github.com/glorpus-work/bucketd/pkg/download"
	"github.com/glorpus-work/bucketd/pkg/errors"
	"github.com/glorpus-work/bucketd/pkg/hook"
)

var (
	defaultOnce     sync.Once
	defaultInstance *Orchestrator
	defaultErr      error
)

// Default returns the process-wide orchestrator, wiring it from cfg on the
// first call. Later calls return the same instance and ignore cfg. Callers
// that need isolated instances (tests, embedding) use New instead.
func Default(cfg *config.Config) (*Orchestrator, error) {
	defaultOnce.Do(func() {
		defaultInstance, defaultErr = fromConfig(cfg)
	})
	return defaultInstance, defaultErr
}

// fromConfig builds the production backend stack from configuration.
func fromConfig(cfg *config.Config) (*Orchestrator, error) {
	sources := make([]catalog.Source, 0, len(cfg.Catalogs))
	for _, c := range cfg.Catalogs {
		sources = append(sources, catalog.Source{Name: c.Name, Path: c.Path})
	}
	cat := catalog.NewManager(sources)
	if err := cat.Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load package catalogs")
	}

	db := database.NewInstalledDatabase()
	if err := db.Load(cfg.InstalledDBPath()); err != nil {
		return nil, errors.Wrap(err, "failed to load installed-package database")
	}

	dl := download.NewManager(cfg.Settings.HTTPTimeout, "")

	b := backend.NewManager(cat, dl, db, hook.NewTengoExecutor(),
		cfg.PackageCacheDir(), cfg.Settings.InstallDir, cfg.InstalledDBPath(),
		cfg.Settings.MaxConcurrent)
	return New(b), nil
}
