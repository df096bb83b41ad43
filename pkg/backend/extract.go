package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/glorpus-work/bucketd/pkg/errors"
	"github.com/glorpus-work/bucketd/pkg/fsutil"
	"github.com/glorpus-work/bucketd/pkg/hook"
	"github.com/glorpus-work/bucketd/pkg/model"
	"github.com/mholt/archives"
)

// installArchive verifies the archive against the descriptor, unpacks its
// data/ payload into the package install dir and runs the post-install hook
// if the archive carries one. Returns the relative paths of unpacked files.
func (m *ManagerImpl) installArchive(ctx context.Context, desc *model.PackageDescriptor, archivePath string) ([]string, error) {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrPackageInvalid, "cannot open archive for %s: %v", desc.Name, err)
	}

	meta, err := readMetadata(fsys)
	if err != nil {
		return nil, err
	}
	if meta.Name != desc.Name || meta.Version != desc.Version {
		return nil, errors.Wrapf(errors.ErrPackageInvalid,
			"metadata mismatch - expected %s %s but archive contains %s %s",
			desc.Name, desc.Version, meta.Name, meta.Version)
	}

	targetDir := filepath.Join(m.installDir, desc.Name)
	if err := m.runHook(fsys, hook.PreInstall, preInstallScript, desc, targetDir); err != nil {
		return nil, err
	}

	files, err := unpackData(fsys, targetDir)
	if err != nil {
		return nil, err
	}

	if err := m.runHook(fsys, hook.PostInstall, postInstallScript, desc, targetDir); err != nil {
		return nil, err
	}
	return files, nil
}

func readMetadata(fsys fs.FS) (*Metadata, error) {
	file, err := fsys.Open(filepath.Join(packageMetaDir, metadataFileName))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrPackageInvalid, "archive has no %s: %v", metadataFileName, err)
	}
	defer func() { _ = file.Close() }()

	meta := &Metadata{}
	if err := json.NewDecoder(file).Decode(meta); err != nil {
		return nil, errors.Wrapf(errors.ErrPackageInvalid, "cannot parse %s: %v", metadataFileName, err)
	}
	return meta, nil
}

func unpackData(fsys fs.FS, targetDir string) ([]string, error) {
	if err := fsutil.EnsureDir(targetDir); err != nil {
		return nil, errors.Wrap(err, "failed to create install dir")
	}

	var files []string
	err := fs.WalkDir(fsys, packageDataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(packageDataDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(targetDir, rel)
		if d.IsDir() {
			return fsutil.EnsureDir(dst)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFromArchive(fsys, path, dst); err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		// a payload-less package only carries metadata and hooks
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to unpack package data")
	}
	return files, nil
}

func copyFromArchive(fsys fs.FS, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := fsutil.CreateFilePerm(dst, fsutil.FileModeDefault)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}

// runHook executes the archive's script for the given hook type, if any.
// Pre-install runs before the payload is unpacked, post-install after.
func (m *ManagerImpl) runHook(fsys fs.FS, hookType hook.Type, scriptName string, desc *model.PackageDescriptor, targetDir string) error {
	script, err := fs.ReadFile(fsys, filepath.Join(packageMetaDir, scriptName))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(errors.ErrPackageInvalid, "cannot read %s script for %s: %v", hookType, desc.Name, err)
	}

	m.hooks.AddScript(hookType, string(script))
	defer m.hooks.RemoveScript(hookType)

	return m.hooks.Execute(hookType, hook.Context{
		PackageName:    desc.Name,
		PackageVersion: desc.Version,
		InstallPath:    targetDir,
	})
}
