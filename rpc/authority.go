// File: rpc/authority.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"net/http"
	"strings"
)

// DeriveRemoteAuthority derives the authority a URI transformer should
// stamp onto outgoing file URIs: when the request arrived over a
// TLS-terminating proxy and Host carries no explicit port, the
// authority is Host:443; otherwise Host is used unchanged.
func DeriveRemoteAuthority(r *http.Request) string {
	host := r.Host
	if r.Header.Get("x-forwarded-proto") == "https" && !strings.Contains(host, ":") {
		return host + ":443"
	}
	return host
}
