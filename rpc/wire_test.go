// File: rpc/wire_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/momentics/workbench-gateway/session"
	"github.com/momentics/workbench-gateway/wsproto"
)

type capturingSender struct {
	mu  sync.Mutex
	out [][]byte
}

func (c *capturingSender) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := append([]byte(nil), payload...)
	c.out = append(c.out, cp)
	return nil
}

func (c *capturingSender) last() wireResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.out) == 0 {
		return wireResponse{}
	}
	var resp wireResponse
	_ = json.Unmarshal(c.out[len(c.out)-1], &resp)
	return resp
}

func (c *capturingSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.out)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestWireServerHandleCallRepliesWithResult(t *testing.T) {
	d := NewDispatcher()
	d.RegisterChannel("echo", echoChannel{})
	sender := &capturingSender{}
	ws := newWireServer(d, "tok1", sender.send)

	req := wireRequest{ID: "1", Kind: wireKindCall, Channel: "echo", Name: "ping"}
	blob, _ := json.Marshal(req)
	ws.handleMessage(blob)

	waitFor(t, func() bool { return sender.count() == 1 })
	resp := sender.last()
	if resp.Kind != wireKindReply || resp.ID != "1" {
		t.Fatalf("resp = %+v", resp)
	}
	var result map[string]string
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result["command"] != "ping" || result["token"] != "tok1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestWireServerHandleCallUnknownChannelSendsError(t *testing.T) {
	d := NewDispatcher()
	sender := &capturingSender{}
	ws := newWireServer(d, "tok1", sender.send)

	req := wireRequest{ID: "2", Kind: wireKindCall, Channel: "nope", Name: "x"}
	blob, _ := json.Marshal(req)
	ws.handleMessage(blob)

	waitFor(t, func() bool { return sender.count() == 1 })
	resp := sender.last()
	if resp.Kind != wireKindError || resp.Error == "" {
		t.Fatalf("resp = %+v", resp)
	}
}

type streamingChannel struct{}

func (streamingChannel) Call(ctx context.Context, sc SessionContext, command string, args json.RawMessage) (any, error) {
	return nil, &ErrUnknownCommand{Name: command}
}

func (streamingChannel) Listen(ctx context.Context, sc SessionContext, event string, args json.RawMessage) (<-chan any, context.CancelFunc, error) {
	ch := make(chan any, 1)
	ch <- "tick"
	closeCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(closeCh)
	}()
	go func() {
		<-closeCh
		close(ch)
	}()
	return ch, func() {}, nil
}

func TestWireServerHandleListenStreamsEventsThenDone(t *testing.T) {
	d := NewDispatcher()
	d.RegisterChannel("events", streamingChannel{})
	sender := &capturingSender{}
	ws := newWireServer(d, "tok1", sender.send)

	req := wireRequest{ID: "3", Kind: wireKindListen, Channel: "events", Name: "tick"}
	blob, _ := json.Marshal(req)
	ws.handleMessage(blob)

	waitFor(t, func() bool { return sender.count() >= 1 })
	first := sender.last()
	if first.Kind != wireKindEvent {
		t.Fatalf("first = %+v", first)
	}

	cancelReq := wireRequest{ID: "3", Kind: wireKindCancel}
	cblob, _ := json.Marshal(cancelReq)
	ws.handleMessage(cblob)

	waitFor(t, func() bool { return sender.count() >= 2 && sender.last().Kind == wireKindDone })
}

func TestBindWireServerDoesNotPanicAcrossDisconnect(t *testing.T) {
	d := NewDispatcher()
	d.RegisterChannel("echo", echoChannel{})

	protocol := wsproto.NewProtocol(dummyConn{}, 0)
	sess := session.NewManagementSession("tokZ", protocol)

	d.HandleClientConnected(sess)
	sess.OnClose.Fire()
}
