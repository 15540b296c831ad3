// File: rpc/authority_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"net/http"
	"testing"
)

func TestDeriveRemoteAuthorityAddsPortBehindTLSProxy(t *testing.T) {
	r := &http.Request{Host: "example.com", Header: http.Header{"X-Forwarded-Proto": []string{"https"}}}
	if got := DeriveRemoteAuthority(r); got != "example.com:443" {
		t.Fatalf("got %q", got)
	}
}

func TestDeriveRemoteAuthorityLeavesExplicitPortAlone(t *testing.T) {
	r := &http.Request{Host: "example.com:9000", Header: http.Header{"X-Forwarded-Proto": []string{"https"}}}
	if got := DeriveRemoteAuthority(r); got != "example.com:9000" {
		t.Fatalf("got %q", got)
	}
}

func TestDeriveRemoteAuthorityWithoutProxyHeader(t *testing.T) {
	r := &http.Request{Host: "localhost:8080", Header: http.Header{}}
	if got := DeriveRemoteAuthority(r); got != "localhost:8080" {
		t.Fatalf("got %q", got)
	}
}
