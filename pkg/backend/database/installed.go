// Package database provides a simple JSON-backed store for installed packages.
package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glorpus-work/bucketd/pkg/errors"
	"github.com/glorpus-work/bucketd/pkg/fsutil"
	"github.com/glorpus-work/bucketd/pkg/model"
)

// InstalledManager defines the interface for the installed-package store.
type InstalledManager interface {
	Load(dbPath string) error
	Save(dbPath string) error
	FindPackage(name string) *model.InstalledPackage
	IsPackageInstalled(name string) bool
	AddPackage(pkg *model.InstalledPackage)
	RemovePackage(name string) bool
	InstalledPackages() []*model.InstalledPackage
	InstalledNames() map[string]bool
}

// InstalledManagerImpl represents the database of installed packages.
type InstalledManagerImpl struct {
	FormatVersion string                    `json:"format_version"`
	LastUpdate    time.Time                 `json:"last_update"`
	Packages      []*model.InstalledPackage `json:"packages"`
	rwMutex       sync.RWMutex
}

// NewInstalledDatabase creates a new, empty installed-package database.
func NewInstalledDatabase() *InstalledManagerImpl {
	return &InstalledManagerImpl{
		FormatVersion: "1",
		LastUpdate:    time.Now(),
	}
}

// Load reads the database from file. A missing file yields an empty database.
func (db *InstalledManagerImpl) Load(dbPath string) error {
	cleanPath := filepath.Clean(dbPath)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("database path must be absolute: %s: %w", dbPath, errors.ErrInvalidPath)
	}

	if _, err := os.Stat(cleanPath); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer func() { _ = file.Close() }()

	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()
	if err := json.NewDecoder(file).Decode(db); err != nil {
		return errors.Wrapf(err, "failed to parse database file %s", cleanPath)
	}
	return nil
}

// Save writes the database to file atomically (temp file + rename).
func (db *InstalledManagerImpl) Save(dbPath string) (err error) {
	cleanPath := filepath.Clean(dbPath)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("database path must be absolute: %s: %w", dbPath, errors.ErrInvalidPath)
	}

	if err := fsutil.EnsureFileDir(cleanPath); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(cleanPath), "bucketd-db-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	db.rwMutex.Lock()
	db.LastUpdate = time.Now()
	data, err := json.MarshalIndent(db, "", "  ")
	db.rwMutex.Unlock()
	if err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to marshal database: %w", err)
	}

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write database: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err = fsutil.Move(tmpPath, cleanPath); err != nil {
		return fmt.Errorf("failed to move database into place: %w", err)
	}
	return nil
}

// FindPackage returns the installed record for name, or nil.
func (db *InstalledManagerImpl) FindPackage(name string) *model.InstalledPackage {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	for _, pkg := range db.Packages {
		if pkg.Name == name {
			return pkg
		}
	}
	return nil
}

// IsPackageInstalled reports whether a package is recorded as installed.
func (db *InstalledManagerImpl) IsPackageInstalled(name string) bool {
	return db.FindPackage(name) != nil
}

// AddPackage records a package, replacing any existing record with the same name.
func (db *InstalledManagerImpl) AddPackage(pkg *model.InstalledPackage) {
	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()

	for i, existing := range db.Packages {
		if existing.Name == pkg.Name {
			db.Packages[i] = pkg
			db.LastUpdate = time.Now()
			return
		}
	}
	db.Packages = append(db.Packages, pkg)
	db.LastUpdate = time.Now()
}

// RemovePackage drops a package record. Returns false if it was not present.
func (db *InstalledManagerImpl) RemovePackage(name string) bool {
	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()

	for i, pkg := range db.Packages {
		if pkg.Name == name {
			db.Packages = append(db.Packages[:i], db.Packages[i+1:]...)
			db.LastUpdate = time.Now()
			return true
		}
	}
	return false
}

// InstalledPackages returns all installed package records.
func (db *InstalledManagerImpl) InstalledPackages() []*model.InstalledPackage {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	out := make([]*model.InstalledPackage, len(db.Packages))
	copy(out, db.Packages)
	return out
}

// InstalledNames returns the set of installed package names.
func (db *InstalledManagerImpl) InstalledNames() map[string]bool {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	names := make(map[string]bool, len(db.Packages))
	for _, pkg := range db.Packages {
		names[pkg.Name] = true
	}
	return names
}
