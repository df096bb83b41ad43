//go:generate mockgen -destination=./mocks/download.go -package=mocks . Manager

package download

import (
	"context"
	"net/url"
)

// Item describes a single file to download.
type Item struct {
	ID       string   // logical ID, usually the package name
	URL      *url.URL // source URL
	Filename string   // optional filename override within the target dir
	Checksum string   // optional sha256 hex digest
	Size     int64    // expected size in bytes, used for progress totals
}

// Options control a fetch operation.
type Options struct {
	Dir         string // absolute target directory
	Concurrency int    // number of parallel downloads (0 = auto)

	// OnProgress, when set, is invoked as bytes arrive for an item. written
	// is cumulative for that item. Callbacks may arrive from multiple
	// goroutines when Concurrency > 1.
	OnProgress func(id string, written, total int64)
}

// Manager downloads package archives into a local cache directory.
type Manager interface {
	// FetchAll downloads all items and returns a map of item ID to local path.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)
	// Fetch downloads a single item and returns the local path.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}
