// File: httpstatic/resource.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package httpstatic

import (
	"fmt"
	"net/http"
	"os"
)

// serveRemoteResource proxies a single file named by the "path" query
// parameter, the way the workbench fetches resources (icons, extension
// assets) before any WebSocket session exists. A weak ETag keyed off
// inode, size and modification time lets browsers skip the re-fetch.
func (h *Handler) serveRemoteResource(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path query parameter", http.StatusBadRequest)
		return
	}

	fi, err := os.Stat(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if fi.IsDir() {
		http.Error(w, "path is a directory", http.StatusBadRequest)
		return
	}

	etag := computeETag(fi)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	http.ServeFile(w, r, path)
}

func etagString(ino uint64, size int64, mtimeMillis int64) string {
	return fmt.Sprintf(`W/"%d-%d-%d"`, ino, size, mtimeMillis)
}
