//go:build windows

package control

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// DefaultAddr returns the control pipe name; baseDir is unused on Windows
// since named pipes live in their own namespace, not the filesystem.
func DefaultAddr(baseDir string) string {
	return `\\.\pipe\recorder-control`
}

// Listen opens a named pipe at addr (e.g. `\\.\pipe\recorder-control`).
func Listen(addr string, stop StopFunc) (*Server, error) {
	ln, err := winio.ListenPipe(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("control: listen pipe %s: %w", addr, err)
	}
	return &Server{listener: ln, stop: stop, done: make(chan struct{})}, nil
}

// Dial connects to a named pipe previously created with Listen.
func Dial(addr string) (net.Conn, error) {
	return winio.DialPipe(addr, nil)
}
