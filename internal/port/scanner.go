// Package port implements port availability probing and upward port
// allocation for the upload backend and the projects it generates.
//
// The allocator answers one question: starting at a preferred port, what is
// the lowest port that can be bound right now? It does this by:
//   - Probing host ports with net.Listen/net.ListenPacket and closing the
//     probe socket immediately
//   - Walking upward one port at a time from the preferred port
//   - Stopping at a fixed upper limit instead of searching forever
package port

import (
	"fmt"
	"net"
)

// Scanner checks whether specific ports are available on the host machine.
//
// It uses the operating system's network stack (net.Listen / net.ListenPacket)
// to determine if a port is free. This asks the OS directly, rather than
// parsing /proc/net/* or relying on external commands like `lsof` or `ss`
// which may require elevated permissions.
//
// Scanner satisfies the Prober interface used by Allocator.
type Scanner struct {
	// host is the bind address used for probes. Empty means all
	// interfaces, which is what a server listening on ":port" will use.
	host string
}

// NewScanner creates a Scanner that probes on all interfaces.
func NewScanner() *Scanner {
	return &Scanner{}
}

// NewScannerOnHost creates a Scanner that probes on a specific address,
// e.g. "127.0.0.1" for a loopback-only server.
func NewScannerOnHost(host string) *Scanner {
	return &Scanner{host: host}
}

// IsPortAvailable checks whether a single port is free on the host machine.
//
// For TCP, it attempts net.Listen("tcp", host:port). For UDP, it attempts
// net.ListenPacket("udp", host:port). If the listen/bind succeeds, the port
// is available and the probe socket is closed before returning.
//
// Any bind failure (address in use, permission denied, invalid port) makes
// the port unavailable. Callers never see the underlying error because a
// failed probe is an expected outcome, not a fault.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	if port < 1 || port > maxPort {
		return false
	}
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", port))

	switch protocol {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		// The probe is scoped to this call: nothing stays bound afterwards.
		_ = listener.Close()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true

	default:
		// Unknown protocol - treat as unavailable to fail safe.
		return false
	}
}
