// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Size-classed buffer pooling. The persistent protocol (package
// wsproto) takes the wire bytes of its replay segments from it; these
// are short-lived []byte allocations of a handful of common sizes, so
// a small array of sync.Pool instances indexed by rounded size class
// removes most of the GC pressure a naive WebSocket proxy would incur
// under load.
package pool
