// File: httpstatic/workbench.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package httpstatic

import (
	"bytes"
	"encoding/json"
	"html"
	"net/http"
	"os"

	"github.com/momentics/workbench-gateway/rpc"
)

const configPlaceholder = "{{WORKBENCH_WEB_CONFIGURATION}}"

func loadTemplate(path string) ([]byte, error) {
	return os.ReadFile(path)
}

type workbenchConfiguration struct {
	RemoteAuthority string `json:"remoteAuthority"`
	WelcomeBanner   string `json:"welcomeBanner"`
}

func (h *Handler) serveWorkbench(w http.ResponseWriter, r *http.Request) {
	cfg := workbenchConfiguration{
		RemoteAuthority: rpc.DeriveRemoteAuthority(r),
		WelcomeBanner:   h.cfg.WelcomeBanner,
	}
	blob, err := json.Marshal(cfg)
	if err != nil {
		http.Error(w, "failed to render workbench configuration", http.StatusInternalServerError)
		return
	}
	escaped := html.EscapeString(string(blob))
	page := bytes.Replace(h.template, []byte(configPlaceholder), []byte(escaped), 1)

	w.Header().Set("Content-Security-Policy", "require-trusted-types-for 'script'")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
