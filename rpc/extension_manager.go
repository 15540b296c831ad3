// File: rpc/extension_manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DirExtensionManager is the concrete ExtensionManager the gateway's
// cmd wiring supplies to ExtensionsChannel: extensions are directories
// under a user root, each holding a package.json scanOneExtension can
// read, mirroring the layout EnvironmentChannel already scans.

package rpc

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrExtensionNotFound is returned by Uninstall when id names no
// installed extension.
var ErrExtensionNotFound = errors.New("rpc: extension not found")

// DirExtensionManager installs/uninstalls/lists extensions unpacked
// under a single user extensions root.
type DirExtensionManager struct {
	userExtensionsRoot string
}

// NewDirExtensionManager roots manager operations at userRoot, the
// same directory EnvironmentChannel.scanExtensions treats as the user
// extension tree.
func NewDirExtensionManager(userRoot string) *DirExtensionManager {
	return &DirExtensionManager{userExtensionsRoot: userRoot}
}

// Install unpacks the .vsix (a zip archive) at vsixPath into a
// directory named after its package.json "name" field under the user
// extensions root.
func (m *DirExtensionManager) Install(ctx context.Context, vsixPath string) (ExtensionDescription, error) {
	zr, err := zip.OpenReader(vsixPath)
	if err != nil {
		return ExtensionDescription{}, err
	}
	defer zr.Close()

	tmpDir, err := os.MkdirTemp(m.userExtensionsRoot, ".install-*")
	if err != nil {
		return ExtensionDescription{}, err
	}
	defer os.RemoveAll(tmpDir)

	for _, f := range zr.File {
		if err := extractZipEntry(tmpDir, f); err != nil {
			return ExtensionDescription{}, err
		}
	}

	desc, err := scanOneExtension(tmpDir, false)
	if err != nil {
		return ExtensionDescription{}, err
	}

	finalDir := filepath.Join(m.userExtensionsRoot, desc.ID)
	if err := os.RemoveAll(finalDir); err != nil {
		return ExtensionDescription{}, err
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		return ExtensionDescription{}, err
	}
	desc.Path = finalDir
	return desc, nil
}

func extractZipEntry(destRoot string, f *zip.File) error {
	path := filepath.Join(destRoot, f.Name)
	if !strings.HasPrefix(path, filepath.Clean(destRoot)+string(os.PathSeparator)) {
		return fmt.Errorf("rpc: zip entry %q escapes extraction root", f.Name)
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = out.ReadFrom(rc)
	return err
}

// Uninstall removes the extension directory named id.
func (m *DirExtensionManager) Uninstall(ctx context.Context, id string) error {
	dir := filepath.Join(m.userExtensionsRoot, id)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return ErrExtensionNotFound
	}
	return os.RemoveAll(dir)
}

// List scans the user extensions root the same way
// EnvironmentChannel.scanExtensions does for its user half.
func (m *DirExtensionManager) List(ctx context.Context) ([]ExtensionDescription, error) {
	descs, err := scanExtensionRoot(m.userExtensionsRoot, false)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return descs, err
}
