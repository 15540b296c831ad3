// File: rpc/debugbroadcast.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"context"
	"encoding/json"
	"sync"
)

// DebugBroadcastChannel fans out extension-host debug messages to
// every current subscriber with no persistence: a broadcast sent
// before a listener subscribes is simply lost.
type DebugBroadcastChannel struct {
	mu          sync.Mutex
	nextID      int
	subscribers map[int]chan any
}

// NewDebugBroadcastChannel constructs an empty fan-out channel.
func NewDebugBroadcastChannel() *DebugBroadcastChannel {
	return &DebugBroadcastChannel{subscribers: make(map[int]chan any)}
}

// Call implements Channel: the only command is "broadcast", delivering
// args to every current subscriber.
func (c *DebugBroadcastChannel) Call(ctx context.Context, sc SessionContext, command string, args json.RawMessage) (any, error) {
	if command != "broadcast" {
		return nil, &ErrUnknownCommand{Name: command}
	}
	var payload any
	if err := json.Unmarshal(args, &payload); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subscribers {
		select {
		case sub <- payload:
		default:
		}
	}
	return nil, nil
}

// Listen implements Channel: "broadcast" subscribes to the fan-out.
func (c *DebugBroadcastChannel) Listen(ctx context.Context, sc SessionContext, event string, args json.RawMessage) (<-chan any, context.CancelFunc, error) {
	if event != "broadcast" {
		return nil, nil, &ErrUnknownCommand{Name: event}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	sub := make(chan any, 16)
	c.subscribers[id] = sub
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if s, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(s)
		}
		c.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return sub, cancel, nil
}
