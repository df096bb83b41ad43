// Package hook runs package configuration scripts embedded in package
// archives. Scripts are written in Tengo and executed after a package's
// payload has been unpacked into the install directory.
package hook

// Type represents the kind of hook.
type Type string

// Supported hook types.
const (
	PreInstall  Type = "pre-install"
	PostInstall Type = "post-install"
)

// Context contains information passed to hook scripts.
type Context struct {
	PackageName    string
	PackageVersion string
	InstallPath    string
	Vars           map[string]interface{}
}

// Executor defines the interface for running package hooks.
type Executor interface {
	// Execute runs the script of the given type, if one is registered.
	Execute(hookType Type, ctx Context) error

	// AddScript registers or replaces the script for a hook type.
	AddScript(hookType Type, script string)

	// RemoveScript drops the script for a hook type.
	RemoveScript(hookType Type)

	// HasScript checks whether a script is registered for a hook type.
	HasScript(hookType Type) bool
}
