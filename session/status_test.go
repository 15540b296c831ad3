// File: session/status_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import (
	"testing"

	"github.com/momentics/workbench-gateway/api"
	"github.com/momentics/workbench-gateway/wsframe"
	"github.com/momentics/workbench-gateway/wsproto"
)

type blockingConn struct{}

func (blockingConn) ReadMessage() (wsframe.Opcode, []byte, error) { select {} }
func (blockingConn) WriteMessage(wsframe.Opcode, []byte) error    { return nil }
func (blockingConn) Close() error                                 { return nil }

func TestManagementSessionStatusLifecycle(t *testing.T) {
	protocol := wsproto.NewProtocol(blockingConn{}, 0)
	sess := NewManagementSession("T1", protocol)

	if got := sess.Status(); got != api.SessionActive {
		t.Fatalf("Status() = %v, want SessionActive", got)
	}

	sess.Dispose()
	if got := sess.Status(); got != api.SessionClosed {
		t.Fatalf("Status() after Dispose = %v, want SessionClosed", got)
	}
}

func TestExtensionHostSessionStatusTracksWorkerAttachment(t *testing.T) {
	protocol := wsproto.NewProtocol(blockingConn{}, 0)
	params := RemoteExtensionHostStartParams{Language: "en"}
	sess := NewExtensionHostSession("T2", protocol, params)

	if got := sess.Status(); got != api.SessionConnecting {
		t.Fatalf("Status() before worker attach = %v, want SessionConnecting", got)
	}

	sess.Worker = fakeWorker{}
	if got := sess.Status(); got != api.SessionActive {
		t.Fatalf("Status() after worker attach = %v, want SessionActive", got)
	}

	sess.Dispose()
	if got := sess.Status(); got != api.SessionClosed {
		t.Fatalf("Status() after Dispose = %v, want SessionClosed", got)
	}
}

type fakeWorker struct{}

func (fakeWorker) PID() int                                               { return 1 }
func (fakeWorker) Reconnect(newProtocol *wsproto.Protocol, debugPort int) error { return nil }
func (fakeWorker) Dispose()                                               {}
