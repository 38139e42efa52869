//go:build !windows

package control

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// DefaultAddr returns the control socket path under baseDir.
func DefaultAddr(baseDir string) string {
	return filepath.Join(baseDir, "control.sock")
}

// Listen binds a Unix domain socket at addr (a filesystem path). Any stale
// socket file left by a previous unclean exit is removed first.
func Listen(addr string, stop StopFunc) (*Server, error) {
	_ = os.Remove(addr)

	ln, err := net.Listen("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("control: listen unix %s: %w", addr, err)
	}
	return &Server{listener: ln, stop: stop, done: make(chan struct{})}, nil
}

// Dial connects to a control socket previously created with Listen.
func Dial(addr string) (net.Conn, error) {
	return net.Dial("unix", addr)
}
