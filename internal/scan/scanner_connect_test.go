package scan

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestConnectScanner_OpenPortReturnsOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	s := NewConnectScanner(nil)

	state, _ := s.Probe(context.Background(), addr.IP, addr.Port)
	if state != StateOpen {
		t.Errorf("got %v, want StateOpen", state)
	}
}

func TestConnectScanner_ClosedPortReturnsClosed(t *testing.T) {
	// Bind and immediately close to free the port while keeping it unlikely
	// to be reused during the test, then probe it: nothing is listening, so
	// the kernel replies with RST -> ECONNREFUSED.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	s := NewConnectScanner(nil)
	state, _ := s.Probe(context.Background(), addr.IP, addr.Port)
	if state != StateClosed {
		t.Errorf("got %v, want StateClosed", state)
	}
}

func TestConnectScanner_DeadlineExceededIsFiltered(t *testing.T) {
	s := NewConnectScanner(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	// 198.18.0.0/15 is reserved for benchmarking and routed nowhere, making
	// it a reliable source of timeouts without relying on network access.
	state, _ := s.Probe(ctx, net.ParseIP("198.18.0.1"), 80)
	if state != StateFiltered {
		t.Errorf("got %v, want StateFiltered", state)
	}
}

func TestClassifyConnectError_TableCases(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want PortState
	}{
		{"deadline exceeded", context.DeadlineExceeded, StateFiltered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyConnectError(tc.err); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
