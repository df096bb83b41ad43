package backend

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/glorpus-work/bucketd/internal/logger"
	"github.com/glorpus-work/bucketd/pkg/backend/database"
	"github.com/glorpus-work/bucketd/pkg/catalog"
	"github.com/glorpus-work/bucketd/pkg/download"
	"github.com/glorpus-work/bucketd/pkg/errors"
	"github.com/glorpus-work/bucketd/pkg/hook"
	"github.com/glorpus-work/bucketd/pkg/model"
)

// ManagerImpl implements Backend on top of the catalog, download manager,
// installed database and hook executor.
type ManagerImpl struct {
	catalog     *catalog.Manager
	dl          download.Manager
	db          database.InstalledManager
	hooks       hook.Executor
	cacheDir    string
	installDir  string
	dbPath      string
	concurrency int
}

// NewManager wires a backend from its collaborators. cacheDir, installDir and
// dbPath must be absolute. concurrency caps parallel downloads (0 = auto).
func NewManager(cat *catalog.Manager, dl download.Manager, db database.InstalledManager,
	hooks hook.Executor, cacheDir, installDir, dbPath string, concurrency int) *ManagerImpl {
	return &ManagerImpl{
		catalog:     cat,
		dl:          dl,
		db:          db,
		hooks:       hooks,
		cacheDir:    cacheDir,
		installDir:  installDir,
		dbPath:      dbPath,
		concurrency: concurrency,
	}
}

// Lookup returns the state of a single package.
func (m *ManagerImpl) Lookup(name string) (*model.PackageState, error) {
	if pkg := m.db.FindPackage(name); pkg != nil {
		return &model.PackageState{Name: name, Version: pkg.Version, Installed: true}, nil
	}
	desc, err := m.catalog.ResolvePackage(name, "")
	if err != nil {
		return nil, err
	}
	return &model.PackageState{Name: name, Version: desc.Version, Installed: false}, nil
}

// InstallBucket resolves, fetches and unpacks every package of the bucket.
// Members that cannot be resolved (unknown package, conflict, no matching
// version) are skipped while the rest of the bucket proceeds; their errors
// are joined into the returned error. Packages committed before a fetch or
// unpack failure stay installed.
func (m *ManagerImpl) InstallBucket(ctx context.Context, bucket model.Bucket, onEvent func(model.BackendEvent)) error {
	emit := func(ev model.BackendEvent) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	plan, resolutionErr := m.planBucket(bucket)
	if len(plan) == 0 {
		return resolutionErr
	}

	paths, err := m.fetchPlan(ctx, plan, emit)
	if err != nil {
		return stderrors.Join(resolutionErr, errors.Wrapf(err, "failed to fetch bucket %s", bucket))
	}

	total := int64(len(plan))
	emit(model.BackendEvent{Kind: model.EventInstall, Completed: 0, Total: total})
	for i, desc := range plan {
		logger.Debug("installing package", logger.Fields{"package": desc.Name, "version": desc.Version})
		files, err := m.installArchive(ctx, desc, paths[desc.Name])
		if err != nil {
			return stderrors.Join(resolutionErr, errors.Wrapf(err, "failed to install %s", desc.Name))
		}
		m.db.AddPackage(&model.InstalledPackage{
			Name:        desc.Name,
			Version:     desc.Version,
			InstalledAt: time.Now(),
			Files:       files,
		})
		if err := m.db.Save(m.dbPath); err != nil {
			return stderrors.Join(resolutionErr, errors.Wrapf(err, "failed to record install of %s", desc.Name))
		}
		emit(model.BackendEvent{Kind: model.EventInstall, Name: desc.Name, Completed: int64(i + 1), Total: total})
	}

	return resolutionErr
}

// planBucket resolves each bucket member independently into a merged,
// dependency-ordered plan. A member whose closure cannot be resolved or
// conflicts with installed/planned packages contributes an error instead of
// plan entries.
func (m *ManagerImpl) planBucket(bucket model.Bucket) ([]*model.PackageDescriptor, error) {
	installed := m.db.InstalledNames()
	planned := make(map[string]bool)
	var plan []*model.PackageDescriptor
	var errs []error

	for _, name := range bucket {
		exclude := make(map[string]bool, len(installed)+len(planned))
		for n := range installed {
			exclude[n] = true
		}
		for n := range planned {
			exclude[n] = true
		}

		closure, err := m.catalog.Closure(name, exclude)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		ok := true
		for _, desc := range closure {
			if err := m.catalog.CheckConflicts(desc, exclude); err != nil {
				errs = append(errs, err)
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		for _, desc := range closure {
			planned[desc.Name] = true
			plan = append(plan, desc)
		}
	}

	return plan, stderrors.Join(errs...)
}

// fetchPlan downloads every planned archive, emitting fetch events with
// bucket-global byte counts.
func (m *ManagerImpl) fetchPlan(ctx context.Context, plan []*model.PackageDescriptor, emit func(model.BackendEvent)) (map[string]string, error) {
	var totalBytes int64
	items := make([]download.Item, 0, len(plan))
	for _, desc := range plan {
		totalBytes += desc.Size
		items = append(items, download.Item{
			ID:       desc.Name,
			URL:      desc.GetURL(),
			Checksum: desc.Checksum,
			Size:     desc.Size,
		})
	}

	emit(model.BackendEvent{Kind: model.EventFetch, Completed: 0, Total: totalBytes})

	var mu sync.Mutex
	written := make(map[string]int64, len(items))
	opts := download.Options{
		Dir:         m.cacheDir,
		Concurrency: m.concurrency,
		OnProgress: func(id string, w, _ int64) {
			mu.Lock()
			written[id] = w
			var cum int64
			for _, v := range written {
				cum += v
			}
			mu.Unlock()
			emit(model.BackendEvent{Kind: model.EventFetch, Name: id, Completed: cum, Total: totalBytes})
		},
	}

	return m.dl.FetchAll(ctx, items, opts)
}
