package catalog

import (
	"fmt"

	"github.com/glorpus-work/bucketd/pkg/errors"
	"github.com/glorpus-work/bucketd/pkg/model"
)

// Closure resolves name and its transitive dependencies into install order
// (dependencies before dependents). Already-installed packages are pruned
// from the result but still count for conflict checks by the caller.
func (m *Manager) Closure(name string, installed map[string]bool) ([]*model.PackageDescriptor, error) {
	res := &resolver{
		manager:   m,
		installed: installed,
		selected:  make(map[string]*model.PackageDescriptor),
		visiting:  make(map[string]struct{}),
	}
	if err := res.resolveNode(name, ""); err != nil {
		return nil, err
	}
	return res.order, nil
}

type resolver struct {
	manager   *Manager
	installed map[string]bool
	selected  map[string]*model.PackageDescriptor
	visiting  map[string]struct{}
	order     []*model.PackageDescriptor // deps first
}

func (r *resolver) resolveNode(name, versionConstraint string) error {
	if r.installed[name] {
		return nil
	}
	if _, ok := r.selected[name]; ok {
		return nil
	}
	if _, ok := r.visiting[name]; ok {
		return fmt.Errorf("dependency cycle detected involving %s", name)
	}
	r.visiting[name] = struct{}{}
	defer delete(r.visiting, name)

	desc, err := r.manager.ResolvePackage(name, versionConstraint)
	if err != nil {
		return err
	}

	for _, dep := range desc.Dependencies {
		if err := r.resolveNode(dep.Name, dep.VersionConstraint); err != nil {
			return err
		}
	}

	r.selected[name] = desc
	r.order = append(r.order, desc)
	return nil
}

// CheckConflicts reports the first conflict between desc and the given set of
// package names (installed packages plus packages already planned for the
// same bucket). Conflicts are checked in both directions.
func (m *Manager) CheckConflicts(desc *model.PackageDescriptor, against map[string]bool) error {
	for _, c := range desc.Conflicts {
		if against[c] {
			return errors.Wrapf(errors.ErrPackageConflict, "%s conflicts with %s", desc.Name, c)
		}
	}
	for name := range against {
		others := m.packages[name]
		for _, other := range others {
			if other.ConflictsWith(desc.Name) {
				return errors.Wrapf(errors.ErrPackageConflict, "%s conflicts with %s", name, desc.Name)
			}
		}
	}
	return nil
}
