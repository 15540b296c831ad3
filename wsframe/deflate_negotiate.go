// File: wsframe/deflate_negotiate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Parses and echoes the permessage-deflate extension offer per RFC 7692.

package wsframe

import (
	"fmt"
	"strconv"
	"strings"
)

// DeflateParams holds the negotiated permessage-deflate parameters for
// one connection. The gateway accepts whatever the client offers for
// context-takeover and window-bits parameters; client_max_window_bits
// is set to 15 when it is offered without a value or not offered at all.
type DeflateParams struct {
	ClientMaxWindowBits     int
	ServerMaxWindowBits     int
	ClientNoContextTakeover bool
	ServerNoContextTakeover bool
}

// String renders the negotiated extension for the Sec-WebSocket-Extensions
// response header.
func (p DeflateParams) String() string {
	var b strings.Builder
	b.WriteString("permessage-deflate")
	if p.ServerNoContextTakeover {
		b.WriteString("; server_no_context_takeover")
	}
	if p.ClientNoContextTakeover {
		b.WriteString("; client_no_context_takeover")
	}
	if p.ServerMaxWindowBits != 0 {
		fmt.Fprintf(&b, "; server_max_window_bits=%d", p.ServerMaxWindowBits)
	}
	fmt.Fprintf(&b, "; client_max_window_bits=%d", p.ClientMaxWindowBits)
	return b.String()
}

// negotiateDeflate parses a Sec-WebSocket-Extensions header value and,
// if the client offered permessage-deflate, returns the parameters the
// gateway will echo back. ok is false if the client did not offer it.
func negotiateDeflate(header string) (DeflateParams, bool) {
	if header == "" {
		return DeflateParams{}, false
	}
	for _, offer := range strings.Split(header, ",") {
		parts := strings.Split(offer, ";")
		name := strings.ToLower(strings.TrimSpace(parts[0]))
		if name != "permessage-deflate" {
			continue
		}

		params := DeflateParams{ClientMaxWindowBits: 15}
		for _, raw := range parts[1:] {
			kv := strings.SplitN(strings.TrimSpace(raw), "=", 2)
			key := strings.ToLower(strings.TrimSpace(kv[0]))
			var val string
			if len(kv) == 2 {
				val = strings.Trim(strings.TrimSpace(kv[1]), `"`)
			}
			switch key {
			case "client_max_window_bits":
				if val == "" {
					// Offered without a value: normalize to 15.
					params.ClientMaxWindowBits = 15
				} else if n, err := strconv.Atoi(val); err == nil {
					params.ClientMaxWindowBits = n
				}
			case "server_max_window_bits":
				if n, err := strconv.Atoi(val); err == nil {
					params.ServerMaxWindowBits = n
				}
			case "client_no_context_takeover":
				params.ClientNoContextTakeover = true
			case "server_no_context_takeover":
				params.ServerNoContextTakeover = true
			}
		}
		return params, true
	}
	return DeflateParams{}, false
}
