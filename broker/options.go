// File: broker/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package broker

import (
	"time"

	"go.uber.org/zap"
)

// Option mutates a Config during NewBroker construction.
type Option func(*Config)

// WithLogger installs the base logger every session's logger is
// derived from via .With(...).
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithExtensionHostBinary sets the worker executable path forked for
// every fresh extension-host session.
func WithExtensionHostBinary(path string) Option {
	return func(c *Config) { c.ExtensionHostBinaryPath = path }
}

// WithURITransformer sets the path passed to the worker as
// --uriTransformerPath.
func WithURITransformer(path string) Option {
	return func(c *Config) { c.URITransformerPath = path }
}

// WithLogLevel sets the worker's VSCODE_LOG_LEVEL value.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithMaxUnackedBytes caps the persistent protocol's replay buffer.
func WithMaxUnackedBytes(n int) Option {
	return func(c *Config) { c.MaxUnackedBytes = n }
}

// WithDebugPortRangeAttempts caps how many ports allocateFreePort tries
// before giving up.
func WithDebugPortRangeAttempts(n int) Option {
	return func(c *Config) { c.DebugPortRangeAttempts = n }
}

// WithHandshakeTimeout bounds the auth/connectionType handshake. Zero
// disables the bound.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}
