// File: rpc/environment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// ExtensionDescription is the subset of an extension's package.json the
// gateway reports to the workbench.
type ExtensionDescription struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Path      string `json:"path"`
	Main      string `json:"main,omitempty"`
	IsBuiltin bool   `json:"isBuiltin"`
}

type environmentData struct {
	PID              int      `json:"pid"`
	ConnectionToken  string   `json:"connectionToken"`
	AppRoot          string   `json:"appRoot"`
	UserHome         string   `json:"userHome"`
	OS               string   `json:"os"`
	Arch             string   `json:"arch"`
	PerformanceMarks []string `json:"performanceMarks"`
	UseHostProxy     bool     `json:"useHostProxy"`
}

// EnvironmentChannel implements remoteextensionsenvironment.
type EnvironmentChannel struct {
	appRoot               string
	builtinExtensionsRoot string
	userExtensionsRoot    string

	mu    sync.Mutex
	cache map[string][]ExtensionDescription
}

// NewEnvironmentChannel scans under builtinRoot and userRoot.
func NewEnvironmentChannel(appRoot, builtinRoot, userRoot string) *EnvironmentChannel {
	return &EnvironmentChannel{
		appRoot:               appRoot,
		builtinExtensionsRoot: builtinRoot,
		userExtensionsRoot:    userRoot,
		cache:                 make(map[string][]ExtensionDescription),
	}
}

// InvalidateCache drops the cached scan for token. Registered as a
// Dispatcher session-attach hook (see cmd/gateway) so every fresh
// management-session handshake re-scans instead of ever serving a
// stale list to a brand-new token.
func (c *EnvironmentChannel) InvalidateCache(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, token)
}

// InvalidateAll drops every cached scan. The scanned extension set is
// process-global (same builtin/user roots for every token), so an
// install or uninstall on any session invalidates every other
// session's cached list too; wired into ExtensionsChannel's
// install/uninstall success path.
func (c *EnvironmentChannel) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]ExtensionDescription)
}

func generateConnectionToken() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

type scanSingleArgs struct {
	Path string `json:"path"`
}

// Call implements Channel.
func (c *EnvironmentChannel) Call(ctx context.Context, sc SessionContext, command string, args json.RawMessage) (any, error) {
	switch command {
	case "getEnvironmentData":
		home, _ := os.UserHomeDir()
		return environmentData{
			PID:             os.Getpid(),
			ConnectionToken: generateConnectionToken(),
			AppRoot:         c.appRoot,
			UserHome:        home,
			OS:               runtime.GOOS,
			Arch:             runtime.GOARCH,
			PerformanceMarks: []string{"code/didStartExtensionHostGateway"},
			UseHostProxy:     false,
		}, nil
	case "scanExtensions":
		return c.scanExtensions(sc.Token)
	case "scanSingleExtension":
		var a scanSingleArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return scanOneExtension(resolveIncoming(sc, a.Path), false)
	default:
		return nil, &ErrUnknownCommand{Name: command}
	}
}

// Listen implements Channel; this channel has no events.
func (c *EnvironmentChannel) Listen(ctx context.Context, sc SessionContext, event string, args json.RawMessage) (<-chan any, context.CancelFunc, error) {
	return nil, nil, &ErrUnknownCommand{Name: event}
}

func (c *EnvironmentChannel) scanExtensions(token string) ([]ExtensionDescription, error) {
	c.mu.Lock()
	if cached, ok := c.cache[token]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var all []ExtensionDescription
	builtin, err := scanExtensionRoot(c.builtinExtensionsRoot, true)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	all = append(all, builtin...)
	user, err := scanExtensionRoot(c.userExtensionsRoot, false)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	all = append(all, user...)

	c.mu.Lock()
	c.cache[token] = all
	c.mu.Unlock()
	return all, nil
}

func scanExtensionRoot(root string, builtin bool) ([]ExtensionDescription, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []ExtensionDescription
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		desc, err := scanOneExtension(filepath.Join(root, e.Name()), builtin)
		if err != nil {
			continue
		}
		out = append(out, desc)
	}
	return out, nil
}

type packageManifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main"`
}

func scanOneExtension(dir string, builtin bool) (ExtensionDescription, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ExtensionDescription{}, err
	}
	var m packageManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return ExtensionDescription{}, err
	}
	return ExtensionDescription{
		ID:        m.Name,
		Name:      m.Name,
		Version:   m.Version,
		Path:      dir,
		Main:      m.Main,
		IsBuiltin: builtin,
	}, nil
}
