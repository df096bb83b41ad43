//go:generate mockgen -destination=./mocks/backend.go -package=mocks . Backend

// Package backend adapts the package-management machinery (catalog, download,
// unpack, installed database, hooks) behind a narrow contract consumed by the
// install orchestrator. Failures surface as errors from InstallBucket, never
// as panics, so every install attempt produces a terminal result upstream.
package backend

import (
	"context"

	"github.com/glorpus-work/bucketd/pkg/model"
)

// Backend is the contract between the install orchestrator and the package
// system. Only the orchestrator's dispatch worker calls InstallBucket, and
// never concurrently.
type Backend interface {
	// Lookup returns the state of a single package. It returns
	// errors.ErrPackageNotFound when the package is neither installed nor
	// present in any catalog.
	Lookup(name string) (*model.PackageState, error)

	// InstallBucket installs every package of the bucket, invoking onEvent
	// zero or more times with raw progress events before returning. Packages
	// committed before a failure stay installed.
	InstallBucket(ctx context.Context, bucket model.Bucket, onEvent func(model.BackendEvent)) error
}
