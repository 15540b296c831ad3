// File: rpc/filesystem_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fileURI(path string) string { return "file://" + path }

func TestFilesystemChannelWriteReadStatDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	c := NewFilesystemChannel()
	sc := NewSessionContext("tok", "host:8080")
	ctx := context.Background()

	content := base64.StdEncoding.EncodeToString([]byte("hello world"))
	writeArgs, _ := json.Marshal(writeFileArgs{URI: fileURI(path), Content: content})
	if _, err := c.Call(ctx, sc, "writeFile", writeArgs); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	statArgs, _ := json.Marshal(uriArgs{URI: fileURI(path)})
	statResult, err := c.Call(ctx, sc, "stat", statArgs)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	stat := statResult.(fileStat)
	if stat.Type != fileTypeFile || stat.Size != int64(len("hello world")) {
		t.Fatalf("stat = %+v", stat)
	}

	readResult, err := c.Call(ctx, sc, "readFile", statArgs)
	if err != nil {
		t.Fatalf("readFile: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(readResult.(string))
	if err != nil || string(decoded) != "hello world" {
		t.Fatalf("readFile decoded = %q, err=%v", decoded, err)
	}

	if _, err := c.Call(ctx, sc, "delete", statArgs); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected file to be removed")
	}
}

func TestFilesystemChannelOpenReadWriteClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handle.txt")
	if err := os.WriteFile(path, []byte("abcdef"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	c := NewFilesystemChannel()
	sc := NewSessionContext("tok", "host:8080")
	ctx := context.Background()

	openArgsRaw, _ := json.Marshal(openArgs{URI: fileURI(path), Flags: "r"})
	fdResult, err := c.Call(ctx, sc, "open", openArgsRaw)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	fd := fdResult.(int)

	readArgsRaw, _ := json.Marshal(readArgs{FD: fd, Length: 3})
	data, err := c.Call(ctx, sc, "read", readArgsRaw)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	decoded, _ := base64.StdEncoding.DecodeString(data.(string))
	if string(decoded) != "abc" {
		t.Fatalf("read = %q", decoded)
	}

	closeArgsRaw, _ := json.Marshal(handleArgs{FD: fd})
	if _, err := c.Call(ctx, sc, "close", closeArgsRaw); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestFilesystemChannelReadFileStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.txt")
	if err := os.WriteFile(path, []byte("streamed-bytes"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	c := NewFilesystemChannel()
	sc := NewSessionContext("tok", "host:8080")
	uriArgsRaw, _ := json.Marshal(uriArgs{URI: fileURI(path)})

	stream, cancel, err := c.Listen(context.Background(), sc, "readFileStream", uriArgsRaw)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer cancel()

	var collected []byte
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				t.Fatal("stream closed before done chunk")
			}
			chunk := ev.(fileChunk)
			if chunk.Done {
				if string(collected) != "streamed-bytes" {
					t.Fatalf("collected = %q", collected)
				}
				return
			}
			part, _ := base64.StdEncoding.DecodeString(chunk.Data)
			collected = append(collected, part...)
		case <-deadline:
			t.Fatal("timed out waiting for stream completion")
		}
	}
}

func TestFilesystemChannelWatchUnwatch(t *testing.T) {
	c := NewFilesystemChannel()
	sc := NewSessionContext("tok", "host:8080")
	ctx := context.Background()

	watchArgsRaw, _ := json.Marshal(uriArgs{URI: fileURI(t.TempDir())})
	result, err := c.Call(ctx, sc, "watch", watchArgsRaw)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	id := result.(map[string]string)["id"]
	if id == "" {
		t.Fatal("expected non-empty watcher id")
	}

	unwatchArgsRaw, _ := json.Marshal(handleIDArgs{ID: id})
	if _, err := c.Call(ctx, sc, "unwatch", unwatchArgsRaw); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
}
