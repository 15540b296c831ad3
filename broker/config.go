// File: broker/config.go
// Package broker accepts upgraded WebSocket connections, runs the
// auth/sign/connectionType handshake, and routes each session to the
// management table or the extension-host table.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package broker

import (
	"time"

	"go.uber.org/zap"
)

// Config holds the broker's tunables, following the functional-options
// pattern: a DefaultConfig() plus Option funcs that mutate a copy.
type Config struct {
	Logger *zap.SugaredLogger

	ExtensionHostBinaryPath string
	URITransformerPath      string
	LogLevel                string

	MaxUnackedBytes        int
	DebugPortRangeAttempts int

	// HandshakeTimeout bounds each handshake wait after upgrade: the
	// wait for auth and, separately, the wait for connectionType. The
	// broker aborts the connection when either wait runs out. Zero
	// disables the timeout.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the baseline configuration; callers must still
// supply ExtensionHostBinaryPath via WithExtensionHostBinary.
func DefaultConfig() Config {
	return Config{
		Logger:                 zap.NewNop().Sugar(),
		URITransformerPath:     "uriTransformer.js",
		LogLevel:               "info",
		MaxUnackedBytes:        4 << 20,
		DebugPortRangeAttempts: 6000,
		HandshakeTimeout:       30 * time.Second,
	}
}
