// File: rpc/extensions.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"context"
	"encoding/json"
)

// ExtensionManager is the underlying service ExtensionsChannel
// delegates to; cmd/gateway supplies DirExtensionManager, rooted at
// the user extensions root that EnvironmentChannel also scans.
type ExtensionManager interface {
	Install(ctx context.Context, vsixPath string) (ExtensionDescription, error)
	Uninstall(ctx context.Context, id string) error
	List(ctx context.Context) ([]ExtensionDescription, error)
}

// ExtensionsChannel implements the extensions channel: install,
// uninstall, and list are delegated to an ExtensionManager.
type ExtensionsChannel struct {
	manager  ExtensionManager
	onChange func()
}

// NewExtensionsChannel wraps manager.
func NewExtensionsChannel(manager ExtensionManager) *ExtensionsChannel {
	return &ExtensionsChannel{manager: manager}
}

// SetOnChange registers fn to run after every successful install or
// uninstall, so callers can drop any cache keyed on the extension set
// (see EnvironmentChannel.InvalidateAll). A no-op until set.
func (c *ExtensionsChannel) SetOnChange(fn func()) {
	c.onChange = fn
}

func (c *ExtensionsChannel) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}

type installArgs struct {
	VSIXPath string `json:"vsixPath"`
}

type uninstallArgs struct {
	ID string `json:"id"`
}

// Call implements Channel.
func (c *ExtensionsChannel) Call(ctx context.Context, sc SessionContext, command string, args json.RawMessage) (any, error) {
	switch command {
	case "install":
		var a installArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		desc, err := c.manager.Install(ctx, a.VSIXPath)
		if err != nil {
			return nil, err
		}
		c.notifyChange()
		return desc, nil
	case "uninstall":
		var a uninstallArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		if err := c.manager.Uninstall(ctx, a.ID); err != nil {
			return nil, err
		}
		c.notifyChange()
		return nil, nil
	case "list":
		return c.manager.List(ctx)
	default:
		return nil, &ErrUnknownCommand{Name: command}
	}
}

// Listen implements Channel; extension lifecycle events are not
// exposed as a stream by this core.
func (c *ExtensionsChannel) Listen(ctx context.Context, sc SessionContext, event string, args json.RawMessage) (<-chan any, context.CancelFunc, error) {
	return nil, nil, &ErrUnknownCommand{Name: event}
}
