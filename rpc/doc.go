// File: rpc/doc.go
// Package rpc multiplexes one management session's protocol into named
// channels, each exposing call(ctx, command, args) and
// listen(ctx, event, args). The Dispatcher is the IPC server side of
// the management session; individual channel implementations live
// alongside it.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc
