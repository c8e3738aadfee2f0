package util

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// SplitTarget turns "host" or "host:port" into a dialable host:port,
// filling in defaultPort when the target carries none.
func SplitTarget(target string, defaultPort int) (string, error) {
	if target == "" {
		return "", fmt.Errorf("empty target address")
	}
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// Bare host (or bare IPv6 literal without brackets).
		host = strings.Trim(target, "[]")
		return FormatAddr(host, defaultPort), nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid port %q in %q", portStr, target)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return FormatAddr(host, port), nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ShortHostname returns the first label of the machine's host name, or
// fallback when it cannot be determined.
func ShortHostname(fallback string) string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return fallback
	}
	if i := strings.IndexByte(h, '.'); i > 0 {
		h = h[:i]
	}
	return h
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
