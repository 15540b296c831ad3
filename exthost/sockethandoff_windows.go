//go:build windows
// +build windows

// File: exthost/sockethandoff_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows has no SCM_RIGHTS. The live socket is instead duplicated for
// the worker process with WSADuplicateSocket, and the resulting
// WSAPROTOCOL_INFO blob is shipped as a length-prefixed frame ahead of
// the JSON control payload on the same loopback control pipe; the
// worker reconstructs the socket with WSASocket. golang.org/x/sys's
// windows subpackage is the same module already depended on for
// golang.org/x/sys/unix, so no new third-party dependency is added.

package exthost

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func newControlSocketpair() (parentEnd, childEnd *os.File, err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, fmt.Errorf("exthost: control listen: %w", err)
	}
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	acceptErrCh := make(chan error, 1)
	go func() {
		c, e := ln.Accept()
		if e != nil {
			acceptErrCh <- e
			return
		}
		acceptCh <- c
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		return nil, nil, fmt.Errorf("exthost: control dial: %w", err)
	}

	var serverConn net.Conn
	select {
	case serverConn = <-acceptCh:
	case err = <-acceptErrCh:
		return nil, nil, fmt.Errorf("exthost: control accept: %w", err)
	}

	clientFile, err := clientConn.(*net.TCPConn).File()
	if err != nil {
		return nil, nil, err
	}
	serverFile, err := serverConn.(*net.TCPConn).File()
	if err != nil {
		return nil, nil, err
	}
	return serverFile, clientFile, nil
}

// sendFDWithPayload duplicates fd for childPID via WSADuplicateSocket
// and writes [4-byte blob length][blob][payload] to ctl.
func sendFDWithPayload(ctl *os.File, payload []byte, fd uintptr, childPID int) error {
	var info windows.WSAProtocolInfo
	if err := windows.WSADuplicateSocket(windows.Handle(fd), uint32(childPID), &info); err != nil {
		return fmt.Errorf("exthost: WSADuplicateSocket: %w", err)
	}

	blob := (*[unsafe.Sizeof(info)]byte)(unsafe.Pointer(&info))[:]
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(blob)))

	if _, err := ctl.Write(lenPrefix[:]); err != nil {
		return err
	}
	if _, err := ctl.Write(blob); err != nil {
		return err
	}
	_, err := ctl.Write(payload)
	return err
}
