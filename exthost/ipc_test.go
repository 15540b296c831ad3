// File: exthost/ipc_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package exthost

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecodeIPCSocketMessage(t *testing.T) {
	payload, err := encodeIPCSocketMessage("YWJj", true, true, "ZGVm")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded ipcSocketMessage
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != ipcTypeSocket {
		t.Fatalf("type = %q", decoded.Type)
	}
	if decoded.InitialDataChunk != "YWJj" || decoded.InflateBytes != "ZGVm" {
		t.Fatalf("unexpected decoded fields: %+v", decoded)
	}
	if !decoded.SkipWebSocketFrames || !decoded.PermessageDeflate {
		t.Fatalf("expected both booleans true: %+v", decoded)
	}
}

func TestDecodeIPCInboundReady(t *testing.T) {
	msg, err := decodeIPCInbound([]byte(`{"type":"VSCODE_EXTHOST_IPC_READY"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != ipcTypeReady {
		t.Fatalf("type = %q, want %q", msg.Type, ipcTypeReady)
	}
}

func TestDecodeIPCInboundConsole(t *testing.T) {
	msg, err := decodeIPCInbound([]byte(`{"type":"__$console","severity":"log","arguments":"[\"hi\"]"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Severity != "log" {
		t.Fatalf("severity = %q", msg.Severity)
	}
}
