package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	ncerr "wifiecho/internal/errors"
)

// loopbackEcho accepts one connection and copies it back to itself.
func loopbackEcho(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		io.Copy(c, c) //nolint:errcheck
	}()
	return ln.Addr().String()
}

func TestTCPDialer_RoundTrip(t *testing.T) {
	d := &TCPDialer{Timeout: 2 * time.Second, KeepAlive: -1}
	conn, err := d.Dial(context.Background(), loopbackEcho(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, ok := conn.(*net.TCPConn); !ok {
		t.Fatalf("conn is %T, want *net.TCPConn", conn)
	}

	conn.SetDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := make([]byte, 4)
	if _, err := io.ReadFull(conn, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "ping" {
		t.Errorf("echo = %q, want ping", got)
	}
}

func TestTCPDialer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&TCPDialer{}).Dial(ctx, loopbackEcho(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// TestTCPDialer_Refused verifies dial errors carry the operation and address.
func TestTCPDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	d := &TCPDialer{Timeout: time.Second}
	_, err = d.Dial(context.Background(), addr)
	var ne *ncerr.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if ne.Op != "dial" || ne.Addr != addr {
		t.Errorf("NetworkError{Op:%q Addr:%q}, want dial %s", ne.Op, ne.Addr, addr)
	}
}

func TestTCPListener_Listen(t *testing.T) {
	l := &TCPListener{}
	ln, err := l.Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err == nil {
			c.Close()
		}
	}()

	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	conn.Close()
}

func TestTCPListener_AddressInUse(t *testing.T) {
	l := &TCPListener{}
	first, err := l.Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	_, err = l.Listen(context.Background(), first.Addr().String())
	var ne *ncerr.NetworkError
	if !errors.As(err, &ne) || ne.Op != "listen" {
		t.Fatalf("second bind = %v, want listen NetworkError", err)
	}
}
