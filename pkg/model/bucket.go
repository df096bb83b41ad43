// Package model provides data structures and types for representing buckets,
// packages, progress events, and install results in the bucketd coordinator.
package model

import (
	"strings"

	"github.com/glorpus-work/bucketd/pkg/errors"
)

// Bucket is an ordered group of system packages installed as one atomic unit.
type Bucket []string

// Equal reports whether two buckets name the same packages in the same order.
// Coalescing of duplicate install requests relies on this exact-sequence match.
func (b Bucket) Equal(other Bucket) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// Validate checks that the bucket is non-empty and contains no empty package names.
func (b Bucket) Validate() error {
	if len(b) == 0 {
		return errors.ErrEmptyBucket
	}
	for _, name := range b {
		if strings.TrimSpace(name) == "" {
			return errors.Wrapf(errors.ErrEmptyBucket, "bucket %s contains an empty package name", b)
		}
	}
	return nil
}

// Clone returns a copy of the bucket so callers cannot mutate a queued request.
func (b Bucket) Clone() Bucket {
	out := make(Bucket, len(b))
	copy(out, b)
	return out
}

func (b Bucket) String() string {
	return strings.Join(b, ", ")
}
