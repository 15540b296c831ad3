// File: rpc/wire.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The envelope multiplexed over a management session's persistent
// protocol "regular" channel. wsproto treats the channel's content as
// opaque bytes (see wsproto/protocol.go); this file defines what those
// bytes mean for channel dispatch. One JSON object per SendRegular
// call, one call or listen in flight per envelope id.

package rpc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/momentics/workbench-gateway/session"
)

const (
	wireKindCall   = "call"
	wireKindListen = "listen"
	wireKindCancel = "cancel"

	wireKindReply = "reply"
	wireKindEvent = "event"
	wireKindDone  = "done"
	wireKindError = "error"
)

type wireRequest struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Channel string          `json:"channel"`
	Name    string          `json:"name"`
	Args    json.RawMessage `json:"args,omitempty"`
}

type wireResponse struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// wireServer binds one management session's protocol to the
// Dispatcher: decoded requests are dispatched by channel name, replies
// and event streams are re-encoded and written back as regular
// messages on the same protocol.
type wireServer struct {
	dispatcher *Dispatcher
	token      string
	sendRegular func([]byte) error

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newWireServer(d *Dispatcher, token string, sendRegular func([]byte) error) *wireServer {
	return &wireServer{
		dispatcher:  d,
		token:       token,
		sendRegular: sendRegular,
		cancels:     make(map[string]context.CancelFunc),
	}
}

// handleMessage is installed via Protocol.SetOnMessage; it is invoked
// synchronously from the protocol's read loop for every regular
// message and must not block.
func (s *wireServer) handleMessage(payload []byte) {
	var req wireRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	switch req.Kind {
	case wireKindCall:
		go s.handleCall(req)
	case wireKindListen:
		go s.handleListen(req)
	case wireKindCancel:
		s.handleCancel(req)
	}
}

func (s *wireServer) handleCall(req wireRequest) {
	ctx := context.Background()
	result, err := s.dispatcher.Call(ctx, s.token, req.Channel, req.Name, req.Args)
	if err != nil {
		s.sendError(req.ID, err)
		return
	}
	s.sendResult(req.ID, wireKindReply, result)
}

func (s *wireServer) handleListen(req wireRequest) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[req.ID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, req.ID)
		s.mu.Unlock()
	}()

	stream, cancelStream, err := s.dispatcher.Listen(ctx, s.token, req.Channel, req.Name, req.Args)
	if err != nil {
		cancel()
		s.sendError(req.ID, err)
		return
	}
	defer cancelStream()

	for payload := range stream {
		s.sendResult(req.ID, wireKindEvent, payload)
	}
	_ = s.send(wireResponse{ID: req.ID, Kind: wireKindDone})
}

func (s *wireServer) handleCancel(req wireRequest) {
	s.mu.Lock()
	cancel, ok := s.cancels[req.ID]
	delete(s.cancels, req.ID)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// cancelAll stops every in-flight listen stream; called when the
// owning management session disconnects.
func (s *wireServer) cancelAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.cancels))
	for id, cancel := range s.cancels {
		cancels = append(cancels, cancel)
		delete(s.cancels, id)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (s *wireServer) sendResult(id, kind string, result any) {
	blob, err := json.Marshal(result)
	if err != nil {
		s.sendError(id, err)
		return
	}
	_ = s.send(wireResponse{ID: id, Kind: kind, Result: blob})
}

func (s *wireServer) sendError(id string, err error) {
	_ = s.send(wireResponse{ID: id, Kind: wireKindError, Error: err.Error()})
}

func (s *wireServer) send(resp wireResponse) error {
	blob, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.sendRegular(blob)
}

// bindWireServer installs a wireServer on sess's protocol, dispatching
// every regular message it receives for the lifetime of the session
// (across any number of reconnects, since the protocol object is
// stable — see session.ManagementSession).
func bindWireServer(d *Dispatcher, sess *session.ManagementSession) {
	ws := newWireServer(d, sess.Token, sess.Protocol.SendRegular)
	sess.Protocol.SetOnMessage(ws.handleMessage)
	sess.OnClose.OnDisconnect(ws.cancelAll)
}
