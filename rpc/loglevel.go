// File: rpc/loglevel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelChannel implements the logLevel/logger channels: it forwards
// setLevel calls to an atomic zap level and log calls to the process
// logger.
type LogLevelChannel struct {
	level  zap.AtomicLevel
	logger *zap.SugaredLogger
}

// NewLogLevelChannel wraps level/logger.
func NewLogLevelChannel(level zap.AtomicLevel, logger *zap.SugaredLogger) *LogLevelChannel {
	return &LogLevelChannel{level: level, logger: logger}
}

type setLevelArgs struct {
	Level string `json:"level"`
}

type logArgs struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Call implements Channel.
func (c *LogLevelChannel) Call(ctx context.Context, sc SessionContext, command string, args json.RawMessage) (any, error) {
	switch command {
	case "setLevel":
		var a setLevelArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(a.Level)); err != nil {
			return nil, err
		}
		c.level.SetLevel(lvl)
		return nil, nil
	case "getLevel":
		return c.level.Level().String(), nil
	case "log":
		var a logArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		c.logger.Infow("remote log", "token", sc.Token, "level", a.Level, "message", a.Message)
		return nil, nil
	default:
		return nil, &ErrUnknownCommand{Name: command}
	}
}

// Listen implements Channel; logLevel has no events.
func (c *LogLevelChannel) Listen(ctx context.Context, sc SessionContext, event string, args json.RawMessage) (<-chan any, context.CancelFunc, error) {
	return nil, nil, &ErrUnknownCommand{Name: event}
}
