//go:build !windows

package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStopCommandInvokesCallback(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "control.sock")

	stopped := make(chan struct{}, 1)
	srv, err := Listen(addr, func() { stopped <- struct{}{} })
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go srv.Serve()
	defer srv.Close()

	if err := RequestStop(addr); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop callback was never invoked")
	}
}

func TestUnknownCommandIsRejected(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "control.sock")

	srv, err := Listen(addr, func() {})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go srv.Serve()
	defer srv.Close()

	conn, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := writeFrame(conn, Request{Command: "bogus"}); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	var resp Response
	if err := readFrame(conn, &resp); err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if resp.OK {
		t.Fatal("expected OK=false for an unknown command")
	}
}

func TestListenRemovesStaleSocket(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "control.sock")

	// A leftover socket file from a previous unclean exit, not a live listener.
	if err := os.WriteFile(addr, nil, 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	srv, err := Listen(addr, func() {})
	if err != nil {
		t.Fatalf("Listen should remove the stale socket file: %v", err)
	}
	srv.Close()
}
