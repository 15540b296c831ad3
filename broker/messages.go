// File: broker/messages.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package broker

import "encoding/json"

// ConnectionType enumerates the desiredConnectionType values a client's
// {type:"connectionType"} message may carry.
type ConnectionType int

const (
	ConnectionTypeManagement     ConnectionType = 1
	ConnectionTypeExtensionHost  ConnectionType = 2
	ConnectionTypeTunnel         ConnectionType = 3
)

type authMessage struct {
	Type string `json:"type"`
}

type signMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type connectionTypeMessage struct {
	Type                  string          `json:"type"`
	DesiredConnectionType ConnectionType  `json:"desiredConnectionType"`
	Commit                string          `json:"commit"`
	Args                  json.RawMessage `json:"args"`
}

type extensionHostArgs struct {
	Language     string `json:"language"`
	DebugPort    int    `json:"debugPort"`
	BreakOnEntry bool   `json:"breakOnEntry"`
}

type okMessage struct {
	Type string `json:"type"`
}

type errorMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

var disconnectMessage = []byte(`{"type":"disconnect"}`)

func encodeSign() []byte {
	b, _ := json.Marshal(signMessage{Type: "sign", Data: ""})
	return b
}

func encodeOK() []byte {
	b, _ := json.Marshal(okMessage{Type: "ok"})
	return b
}

func encodeError(reason string) []byte {
	b, _ := json.Marshal(errorMessage{Type: "error", Reason: reason})
	return b
}

func decodeAuth(payload []byte) (authMessage, error) {
	var m authMessage
	err := json.Unmarshal(payload, &m)
	return m, err
}

func decodeConnectionType(payload []byte) (connectionTypeMessage, error) {
	var m connectionTypeMessage
	err := json.Unmarshal(payload, &m)
	return m, err
}

func decodeExtensionHostArgs(raw json.RawMessage) extensionHostArgs {
	args := extensionHostArgs{Language: "en"}
	if len(raw) == 0 {
		return args
	}
	_ = json.Unmarshal(raw, &args)
	if args.Language == "" {
		args.Language = "en"
	}
	return args
}
