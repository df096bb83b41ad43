// Package catalog loads package catalogs and resolves bucket members to
// concrete package descriptors, including dependency closures and declared
// conflicts. The catalog is the backend's view of what is installable; it
// knows nothing about queueing or progress.
package catalog

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"time"

	"github.com/glorpus-work/bucketd/pkg/errors"
	"github.com/glorpus-work/bucketd/pkg/model"
)

// Source names a single catalog file on disk.
type Source struct {
	Name string
	Path string
}

// File is the on-disk catalog format.
type File struct {
	FormatVersion string                     `json:"format_version"`
	LastUpdate    time.Time                  `json:"last_update"`
	Packages      []*model.PackageDescriptor `json:"packages"`
}

// Manager provides lookups over one or more loaded catalog files.
type Manager struct {
	sources  []Source
	packages map[string][]*model.PackageDescriptor // name -> all known versions
}

// NewManager creates a catalog manager for the given sources. Load must be
// called before lookups.
func NewManager(sources []Source) *Manager {
	return &Manager{
		sources:  sources,
		packages: make(map[string][]*model.PackageDescriptor),
	}
}

// Load reads every catalog source. A missing or unparsable catalog makes the
// whole backend unusable, so the error wraps ErrBackendUnavailable.
func (m *Manager) Load() error {
	m.packages = make(map[string][]*model.PackageDescriptor)
	for _, src := range m.sources {
		file, err := os.Open(src.Path)
		if err != nil {
			return errors.Wrapf(errors.ErrBackendUnavailable, "catalog %s: %v", src.Name, err)
		}
		parsed, err := parseCatalog(file)
		_ = file.Close()
		if err != nil {
			return errors.Wrapf(errors.ErrBackendUnavailable, "catalog %s: %v", src.Name, err)
		}
		for _, pkg := range parsed.Packages {
			m.packages[pkg.Name] = append(m.packages[pkg.Name], pkg)
		}
	}
	return nil
}

func parseCatalog(reader io.Reader) (*File, error) {
	var file File
	if err := json.NewDecoder(reader).Decode(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

// FindPackage returns all known versions of a package, newest first.
func (m *Manager) FindPackage(name string) []*model.PackageDescriptor {
	descs := make([]*model.PackageDescriptor, len(m.packages[name]))
	copy(descs, m.packages[name])
	sort.SliceStable(descs, func(i, j int) bool {
		vi, vj := descs[i].GetVersion(), descs[j].GetVersion()
		if vi == nil || vj == nil {
			return false
		}
		return vi.GreaterThan(vj)
	})
	return descs
}

// ResolvePackage returns the newest version of name satisfying the
// constraint. An empty constraint accepts any version.
func (m *Manager) ResolvePackage(name, versionConstraint string) (*model.PackageDescriptor, error) {
	candidates := m.FindPackage(name)
	if len(candidates) == 0 {
		return nil, errors.Wrapf(errors.ErrPackageNotFound, "package %s", name)
	}
	if versionConstraint == "" {
		versionConstraint = ">= 0.0.0"
	}
	for _, desc := range candidates {
		if desc.MatchVersion(versionConstraint) {
			return desc, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrVersionConstraint, "package %s has no version matching %q", name, versionConstraint)
}
