// File: exthost/supervisor.go
// Package exthost owns one extension-host worker subprocess per
// session: forking it, waiting for its IPC-ready signal, handing off
// the live connection's file descriptor, and reattaching a fresh
// socket across reconnects without losing the worker.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package exthost

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/momentics/workbench-gateway/wsproto"
)

var (
	// ErrNoSocket is returned when the connection handed to the
	// supervisor exposes no duplicable OS file descriptor.
	ErrNoSocket = errors.New("exthost: connection does not expose an OS file descriptor")
	// ErrDisposed is returned by operations attempted on a disposed supervisor.
	ErrDisposed = errors.New("exthost: supervisor already disposed")
)

// fileConn is implemented by wsframe.Conn.
type fileConn interface {
	Underlying() net.Conn
}

// deflateAware is implemented by wsframe.Conn.
type deflateAware interface {
	DeflateEnabled() bool
	RecordedInflateBytes() []byte
}

// fileProvider is implemented by *net.TCPConn and *net.UnixConn.
type fileProvider interface {
	File() (*os.File, error)
}

// Supervisor implements session.WorkerHandle.
type Supervisor struct {
	mu     sync.Mutex
	state  State
	params StartParams
	logger *zap.SugaredLogger

	cmd       *exec.Cmd
	pid       int
	parentCtl *os.File
	protocol  *wsproto.Protocol
	debugPort int
	disposed  bool
	attached  bool
}

// NewSupervisor constructs a supervisor in state NEW.
func NewSupervisor(params StartParams, logger *zap.SugaredLogger) *Supervisor {
	return &Supervisor{params: params, logger: logger, state: StateNew}
}

// PID returns the worker's OS process id, 0 before Start completes.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// CurrentState reports the supervisor's lifecycle stage.
func (s *Supervisor) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// connectPhase sends the debug-port control message, snapshots
// buffered bytes as the initial data chunk, and detaches the protocol
// so its socket becomes available for hand-off.
func connectPhase(protocol *wsproto.Protocol, debugPort int) (string, wsproto.FrameConn, error) {
	var payload []byte
	if debugPort > 0 {
		payload, _ = json.Marshal(map[string]int{"debugPort": debugPort})
	} else {
		payload = []byte("{}")
	}
	if err := protocol.SendControl(payload); err != nil {
		return "", nil, fmt.Errorf("exthost: connect: %w", err)
	}
	buffered := protocol.ReadEntireBuffer()
	initialDataChunk := base64.StdEncoding.EncodeToString(buffered)
	conn := protocol.Detach()
	return initialDataChunk, conn, nil
}

// Start forks the worker and begins the handshake sequence. It returns
// once the fork has succeeded; IPC-ready and socket hand-off happen
// asynchronously in background goroutines.
func (s *Supervisor) Start(ctx context.Context, protocol *wsproto.Protocol, debugPort int) error {
	initialDataChunk, conn, err := connectPhase(protocol, debugPort)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.protocol = protocol
	s.debugPort = debugPort
	s.mu.Unlock()

	parentCtl, childCtl, err := newControlSocketpair()
	if err != nil {
		return err
	}
	defer childCtl.Close()

	argv := buildArgv(s.params, debugPort)
	cmd := exec.CommandContext(ctx, s.params.BinaryPath, argv...)
	cmd.Env = append(os.Environ(), buildEnv(s.params)...)
	cmd.ExtraFiles = []*os.File{childCtl}
	applyPlatformProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("exthost: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("exthost: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("exthost: fork failed: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.pid = cmd.Process.Pid
	s.parentCtl = parentCtl
	s.state = StateStarted
	s.mu.Unlock()

	s.logger = s.logger.With("workerPid", s.pid, "token", s.params.Token)

	go s.streamLog("stdout", stdout)
	go s.streamLog("stderr", stderr)
	go s.controlLoop(parentCtl, initialDataChunk, conn)
	go s.waitExit(cmd)

	return nil
}

func (s *Supervisor) streamLog(stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Infow("worker output", "stream", stream, "line", scanner.Text())
	}
}

func (s *Supervisor) controlLoop(ctl *os.File, initialDataChunk string, conn wsproto.FrameConn) {
	scanner := bufio.NewScanner(ctl)
	for scanner.Scan() {
		msg, err := decodeIPCInbound(scanner.Bytes())
		if err != nil {
			continue
		}
		switch msg.Type {
		case ipcTypeReady:
			s.mu.Lock()
			already := s.attached
			s.attached = true
			s.mu.Unlock()
			if already {
				continue
			}
			if err := s.sendSocketHandoff(conn, initialDataChunk); err != nil {
				s.logger.Errorw("socket hand-off failed", "error", err)
				s.Dispose()
				return
			}
			s.mu.Lock()
			s.state = StateAttached
			s.mu.Unlock()
		case ipcTypeConsole:
			s.logger.Infow("worker console", "severity", msg.Severity, "arguments", msg.Arguments)
		}
	}
}

// sendSocketHandoff ships the detached socket's file descriptor to the
// child over the control channel, along with whatever bytes the
// protocol had already buffered.
func (s *Supervisor) sendSocketHandoff(conn wsproto.FrameConn, initialDataChunk string) error {
	fc, ok := conn.(fileConn)
	if !ok {
		return ErrNoSocket
	}
	netConn := fc.Underlying()
	fp, ok := netConn.(fileProvider)
	if !ok {
		return ErrNoSocket
	}
	file, err := fp.File()
	if err != nil {
		return fmt.Errorf("exthost: duplicate socket fd: %w", err)
	}
	defer file.Close()

	deflateEnabled := false
	inflateBytes := ""
	if da, ok := conn.(deflateAware); ok {
		deflateEnabled = da.DeflateEnabled()
		inflateBytes = base64.StdEncoding.EncodeToString(da.RecordedInflateBytes())
	}

	payload, err := encodeIPCSocketMessage(initialDataChunk, s.params.SkipWebSocketFrames, deflateEnabled, inflateBytes)
	if err != nil {
		return err
	}

	s.mu.Lock()
	pid := s.pid
	parentCtl := s.parentCtl
	s.mu.Unlock()

	if err := sendFDWithPayload(parentCtl, payload, file.Fd(), pid); err != nil {
		return fmt.Errorf("exthost: fd hand-off: %w", err)
	}
	return netConn.Close()
}

func (s *Supervisor) waitExit(cmd *exec.Cmd) {
	err := cmd.Wait()
	s.logger.Infow("worker exited", "error", err)
	s.Dispose()
}

// Reconnect captures a fresh initial data chunk from newProtocol and
// repeats the socket hand-off over the existing worker's control
// channel — no new fork occurs.
func (s *Supervisor) Reconnect(newProtocol *wsproto.Protocol, debugPort int) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.state = StateReattaching
	s.mu.Unlock()

	initialDataChunk, conn, err := connectPhase(newProtocol, debugPort)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.protocol = newProtocol
	s.debugPort = debugPort
	s.mu.Unlock()

	if err := s.sendSocketHandoff(conn, initialDataChunk); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = StateAttached
	s.mu.Unlock()
	return nil
}

// Dispose kills the worker if still alive and closes the control
// channel. Idempotent.
func (s *Supervisor) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.state = StateDead
	cmd := s.cmd
	ctl := s.parentCtl
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	if ctl != nil {
		_ = ctl.Close()
	}
}
