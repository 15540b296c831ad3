// File: httpstatic/doc.go
// Package httpstatic serves the workbench's plain HTTP surface: the
// bootstrap page, static assets, and the vscode-remote-resource file
// proxy used before a WebSocket session exists.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package httpstatic
