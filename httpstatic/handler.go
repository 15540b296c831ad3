// File: httpstatic/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package httpstatic

import (
	"net/http"
	"strings"
)

// Config points the handler at the on-disk assets it serves.
type Config struct {
	StaticRoot    string // app root; GET /static/* is rooted here
	WorkbenchHTML string // path to the workbench page template
	WelcomeBanner string
	ManifestJSON  []byte
	FaviconPath   string
}

// Handler serves the workbench's bootstrap page, static assets and the
// vscode-remote-resource file proxy.
type Handler struct {
	cfg        Config
	fileServer http.Handler
	template   []byte
}

// NewHandler loads the workbench template once at construction.
func NewHandler(cfg Config) (*Handler, error) {
	tmpl, err := loadTemplate(cfg.WorkbenchHTML)
	if err != nil {
		return nil, err
	}
	return &Handler{
		cfg:        cfg,
		fileServer: http.FileServer(http.Dir(cfg.StaticRoot)),
		template:   tmpl,
	}, nil
}

// ServeHTTP routes the workbench's plain HTTP surface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/":
		h.serveWorkbench(w, r)
	case strings.HasPrefix(r.URL.Path, "/static/"):
		h.serveStatic(w, r)
	case r.URL.Path == "/vscode-remote-resource":
		h.serveRemoteResource(w, r)
	case r.URL.Path == "/favicon.ico":
		http.ServeFile(w, r, h.cfg.FaviconPath)
	case r.URL.Path == "/manifest.json":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(h.cfg.ManifestJSON)
	default:
		http.Error(w, "no matching request", http.StatusBadRequest)
	}
}

// serveStatic applies the same weak-ETag/If-None-Match handling as
// serveRemoteResource before delegating to the file server, so
// GET /static/* participates in conditional-GET caching instead of
// relying solely on http.FileServer's Last-Modified handling.
func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request) {
	handler := http.StripPrefix("/static/", h.fileServer)
	rel := strings.TrimPrefix(r.URL.Path, "/static/")

	if f, err := http.Dir(h.cfg.StaticRoot).Open(rel); err == nil {
		fi, statErr := f.Stat()
		f.Close()
		if statErr == nil && !fi.IsDir() {
			etag := computeETag(fi)
			w.Header().Set("ETag", etag)
			if r.Header.Get("If-None-Match") == etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}
	handler.ServeHTTP(w, r)
}
