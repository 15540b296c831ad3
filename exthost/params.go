// File: exthost/params.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package exthost

import (
	"encoding/json"
	"fmt"

	"github.com/momentics/workbench-gateway/session"
)

// StartParams configures one extension-host fork.
type StartParams struct {
	Token               string
	BinaryPath          string
	URITransformerPath  string
	Remote              session.RemoteExtensionHostStartParams
	SkipWebSocketFrames bool
	LogLevel            string
}

// buildArgv returns the worker's argv, excluding argv[0].
func buildArgv(p StartParams, debugPort int) []string {
	argv := []string{
		"--type=extensionHost",
		"--uriTransformerPath=" + p.URITransformerPath,
	}
	if debugPort > 0 {
		flag := "--inspect"
		if p.Remote.BreakOnEntry {
			flag = "--inspect-brk"
		}
		argv = append(argv, fmt.Sprintf("%s=0.0.0.0:%d", flag, debugPort))
	}
	return argv
}

// buildEnv returns the overrides merged on top of the inherited
// environment.
func buildEnv(p StartParams) []string {
	logLevel := p.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}
	nlsConfig, _ := json.Marshal(map[string]string{"locale": p.Remote.Language})

	return []string{
		"VSCODE_AMD_ENTRYPOINT=vs/workbench/services/extensions/node/extensionHostProcess",
		"VSCODE_PIPE_LOGGING=true",
		"VSCODE_VERBOSE_LOGGING=true",
		"VSCODE_LOG_NATIVE=false",
		"VSCODE_EXTHOST_WILL_SEND_SOCKET=true",
		"VSCODE_HANDLES_UNCAUGHT_ERRORS=true",
		"VSCODE_LOG_STACK=true",
		"VSCODE_NLS_CONFIG=" + string(nlsConfig),
		"VSCODE_LOG_LEVEL=" + logLevel,
	}
}
