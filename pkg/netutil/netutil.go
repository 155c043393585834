// Package netutil provides the small network helpers inspiral needs for its
// metrics endpoint and Redis connections.
package netutil

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ValidateHostPort checks that addr is host:port with a port in 1..65535.
// An empty host (":9091") means all interfaces and is accepted.
func ValidateHostPort(addr string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%q is not host:port: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%q has an invalid port %q", addr, portStr)
	}
	return nil
}

// ProbeTCP dials addr and returns nil if it accepts a connection within the timeout.
func ProbeTCP(ctx context.Context, addr string, timeout time.Duration) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("tcp probe to %s failed: %w", addr, err)
	}
	conn.Close()
	return nil
}

// WaitTCP probes addr every interval until it accepts a connection or ctx ends.
func WaitTCP(ctx context.Context, addr string, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := ProbeTCP(ctx, addr, interval); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", addr, ctx.Err())
		case <-t.C:
		}
	}
}

// FreePort finds an available TCP port on localhost.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
