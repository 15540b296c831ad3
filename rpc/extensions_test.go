// File: rpc/extensions_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeExtensionManager struct {
	installed     []string
	failUninstall bool
}

func (m *fakeExtensionManager) Install(ctx context.Context, vsixPath string) (ExtensionDescription, error) {
	m.installed = append(m.installed, vsixPath)
	return ExtensionDescription{ID: vsixPath}, nil
}

func (m *fakeExtensionManager) Uninstall(ctx context.Context, id string) error {
	if m.failUninstall {
		return errors.New("uninstall failed")
	}
	return nil
}

func (m *fakeExtensionManager) List(ctx context.Context) ([]ExtensionDescription, error) {
	return nil, nil
}

func TestExtensionsChannelInstall(t *testing.T) {
	mgr := &fakeExtensionManager{}
	c := NewExtensionsChannel(mgr)
	sc := NewSessionContext("tok", "host")

	args, _ := json.Marshal(installArgs{VSIXPath: "/tmp/foo.vsix"})
	result, err := c.Call(context.Background(), sc, "install", args)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	desc := result.(ExtensionDescription)
	if desc.ID != "/tmp/foo.vsix" || len(mgr.installed) != 1 {
		t.Fatalf("desc = %+v, installed = %v", desc, mgr.installed)
	}
}

func TestExtensionsChannelNotifiesOnChangeAfterInstallUninstall(t *testing.T) {
	mgr := &fakeExtensionManager{}
	c := NewExtensionsChannel(mgr)
	sc := NewSessionContext("tok", "host")

	var notified int
	c.SetOnChange(func() { notified++ })

	installArgsRaw, _ := json.Marshal(installArgs{VSIXPath: "/tmp/foo.vsix"})
	if _, err := c.Call(context.Background(), sc, "install", installArgsRaw); err != nil {
		t.Fatalf("Call install: %v", err)
	}
	if notified != 1 {
		t.Fatalf("notified = %d after install, want 1", notified)
	}

	uninstallArgsRaw, _ := json.Marshal(uninstallArgs{ID: "foo"})
	if _, err := c.Call(context.Background(), sc, "uninstall", uninstallArgsRaw); err != nil {
		t.Fatalf("Call uninstall: %v", err)
	}
	if notified != 2 {
		t.Fatalf("notified = %d after uninstall, want 2", notified)
	}

	mgr.failUninstall = true
	if _, err := c.Call(context.Background(), sc, "uninstall", uninstallArgsRaw); err == nil {
		t.Fatal("expected uninstall error to propagate")
	}
	if notified != 2 {
		t.Fatalf("notified = %d after failed uninstall, want unchanged 2", notified)
	}
}
