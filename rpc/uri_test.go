// File: rpc/uri_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import "testing"

func TestTransformIncoming(t *testing.T) {
	tr := NewTransformer("example.com:8080")

	if got := tr.TransformIncoming("file:///home/user/project"); got != "vscode-local:///home/user/project" {
		t.Fatalf("got %q", got)
	}
	if got := tr.TransformIncoming("vscode-remote://example.com/home/user/project"); got != "file:///home/user/project" {
		t.Fatalf("got %q", got)
	}
	if got := tr.TransformIncoming("http://other/x"); got != "http://other/x" {
		t.Fatalf("got %q", got)
	}
}

func TestTransformOutgoing(t *testing.T) {
	tr := NewTransformer("example.com:8080")

	if got := tr.TransformOutgoing("file:///home/user/project"); got != "vscode-remote://example.com:8080/home/user/project" {
		t.Fatalf("got %q", got)
	}
	if got := tr.TransformOutgoing("vscode-local:///home/user/project"); got != "file:///home/user/project" {
		t.Fatalf("got %q", got)
	}
}
