package backend

// Package archive layout.
const (
	packageMetaDir    = "meta"
	packageDataDir    = "data"
	metadataFileName  = "package.json"
	preInstallScript  = "pre-install.tengo"
	postInstallScript = "post-install.tengo"
)

// Metadata is the descriptor embedded in a package archive under
// meta/package.json. It must match the catalog descriptor the archive was
// resolved from.
type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
