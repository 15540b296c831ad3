// File: rpc/uri.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import "net/url"

// Transformer rewrites URIs crossing the gateway boundary: incoming
// file URIs from the client become vscode-local URIs, incoming
// vscode-remote URIs become file URIs, and local file URIs going out
// become vscode-remote URIs
// carrying this session's remote authority. One Transformer is scoped
// to a single session's remoteAuthority.
type Transformer struct {
	Authority string
}

// NewTransformer builds a transformer for authority.
func NewTransformer(authority string) *Transformer {
	return &Transformer{Authority: authority}
}

// TransformIncoming rewrites a URI arriving from the client: file
// becomes vscode-local (path kept), vscode-remote becomes file (path
// kept), anything else passes through unchanged.
func (t *Transformer) TransformIncoming(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch u.Scheme {
	case "file":
		u.Scheme = "vscode-local"
	case "vscode-remote":
		u.Scheme = "file"
		u.Host = ""
	default:
		return raw
	}
	return u.String()
}

// TransformOutgoing rewrites a URI heading to the client: file becomes
// vscode-remote with this session's authority, vscode-local becomes
// file, anything else passes through unchanged.
func (t *Transformer) TransformOutgoing(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch u.Scheme {
	case "file":
		u.Scheme = "vscode-remote"
		u.Host = t.Authority
	case "vscode-local":
		u.Scheme = "file"
		u.Host = ""
	default:
		return raw
	}
	return u.String()
}
