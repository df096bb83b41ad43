package model

import (
	"net/url"
	"time"

	"github.com/hashicorp/go-version"
)

// Dependency represents a dependency with a name and an optional version constraint.
type Dependency struct {
	Name              string `json:"name"`
	VersionConstraint string `json:"version_constraint,omitempty"`
}

// PackageDescriptor represents the metadata of a package available in the catalog.
type PackageDescriptor struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Description  string       `json:"description,omitempty"`
	URL          string       `json:"url"`
	Checksum     string       `json:"checksum,omitempty"`
	Size         int64        `json:"size"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	Conflicts    []string     `json:"conflicts,omitempty"`
}

// GetVersion returns the parsed version of this package, or nil if it does not parse.
func (d *PackageDescriptor) GetVersion() *version.Version {
	v, err := version.NewVersion(d.Version)
	if err != nil {
		return nil
	}
	return v
}

// MatchVersion checks if this package's version satisfies the given constraint.
func (d *PackageDescriptor) MatchVersion(versionConstraint string) bool {
	constraint, err := version.NewConstraint(versionConstraint)
	if err != nil {
		return false
	}
	v := d.GetVersion()
	if v == nil {
		return false
	}
	return constraint.Check(v)
}

// GetURL returns the parsed source URL of this package.
func (d *PackageDescriptor) GetURL() *url.URL {
	parse, err := url.Parse(d.URL)
	if err != nil {
		return nil
	}
	return parse
}

// ConflictsWith reports whether this package declares a conflict with name.
func (d *PackageDescriptor) ConflictsWith(name string) bool {
	for _, c := range d.Conflicts {
		if c == name {
			return true
		}
	}
	return false
}

// PackageState is the answer to a backend lookup for a single package.
type PackageState struct {
	Name      string
	Version   string
	Installed bool
}

// InstalledPackage records a package committed to the install database.
type InstalledPackage struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	InstalledAt time.Time `json:"installed_at"`
	Files       []string  `json:"files,omitempty"`
}
