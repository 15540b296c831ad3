// File: exthost/ipc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// JSON-lines control-channel protocol between the gateway and a worker,
// carried over the AF_UNIX socketpair established at fork time (the
// child's end is handed to the worker via os/exec ExtraFiles).

package exthost

import "encoding/json"

const (
	ipcTypeReady        = "VSCODE_EXTHOST_IPC_READY"
	ipcTypeSocket       = "VSCODE_EXTHOST_IPC_SOCKET"
	ipcTypeConsole      = "__$console"
)

type ipcInbound struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Arguments string `json:"arguments"`
}

type ipcSocketMessage struct {
	Type                string `json:"type"`
	InitialDataChunk    string `json:"initialDataChunk"`
	SkipWebSocketFrames bool   `json:"skipWebSocketFrames"`
	PermessageDeflate   bool   `json:"permessageDeflate"`
	InflateBytes        string `json:"inflateBytes"`
}

func encodeIPCSocketMessage(initialDataChunk string, skipWebSocketFrames, deflateEnabled bool, inflateBytes string) ([]byte, error) {
	return json.Marshal(ipcSocketMessage{
		Type:                ipcTypeSocket,
		InitialDataChunk:    initialDataChunk,
		SkipWebSocketFrames: skipWebSocketFrames,
		PermessageDeflate:   deflateEnabled,
		InflateBytes:        inflateBytes,
	})
}

func decodeIPCInbound(line []byte) (ipcInbound, error) {
	var m ipcInbound
	err := json.Unmarshal(line, &m)
	return m, err
}
