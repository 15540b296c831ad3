// File: rpc/extension_manager_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTestVsix(t *testing.T, name, version string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	manifest, err := zw.Create("package.json")
	if err != nil {
		t.Fatal(err)
	}
	_, err = manifest.Write([]byte(`{"name":"` + name + `","version":"` + version + `","main":"./out/extension.js"}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), name+".vsix")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDirExtensionManagerInstallListUninstall(t *testing.T) {
	userRoot := t.TempDir()
	mgr := NewDirExtensionManager(userRoot)

	vsix := writeTestVsix(t, "extension", "1.2.3")
	desc, err := mgr.Install(context.Background(), vsix)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if desc.Name != "extension" || desc.Version != "1.2.3" {
		t.Fatalf("desc = %+v", desc)
	}
	if _, err := os.Stat(filepath.Join(userRoot, "extension", "package.json")); err != nil {
		t.Fatalf("installed package.json missing: %v", err)
	}

	list, err := mgr.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Name != "extension" {
		t.Fatalf("list = %+v", list)
	}

	if err := mgr.Uninstall(context.Background(), "extension"); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(filepath.Join(userRoot, "extension")); !os.IsNotExist(err) {
		t.Fatalf("extension directory should be gone, stat err = %v", err)
	}
}

func TestDirExtensionManagerUninstallUnknownReturnsErrExtensionNotFound(t *testing.T) {
	mgr := NewDirExtensionManager(t.TempDir())
	if err := mgr.Uninstall(context.Background(), "nope"); err != ErrExtensionNotFound {
		t.Fatalf("err = %v, want ErrExtensionNotFound", err)
	}
}

func TestDirExtensionManagerListOnMissingRootReturnsEmpty(t *testing.T) {
	mgr := NewDirExtensionManager(filepath.Join(t.TempDir(), "does-not-exist"))
	list, err := mgr.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list = %+v, want empty", list)
	}
}

func TestDirExtensionManagerInstallRejectsZipSlip(t *testing.T) {
	userRoot := t.TempDir()
	mgr := NewDirExtensionManager(userRoot)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../escape.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("oops")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "evil.vsix")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.Install(context.Background(), path); err == nil {
		t.Fatal("expected Install to reject a zip-slip entry")
	}
}
