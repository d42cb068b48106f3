package redisserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/basant256/respkv/internal/server/config"
	"github.com/basant256/respkv/internal/storage/memory"
	"github.com/basant256/respkv/internal/telemetry/metric"
)

const ioTimeout = 2 * time.Second

// startServer runs a server on an ephemeral port and stops it when the
// test ends.
func startServer(t *testing.T, cfg *Config, opts ...Option) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}

	s := New(cfg, opts...)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(context.Background()) }()

	select {
	case <-s.Ready():
	case err := <-errCh:
		t.Fatalf("Serve() error = %v", err)
	case <-time.After(ioTimeout):
		t.Fatal("server did not become ready")
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return s
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", s.Addr(), ioTimeout)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// exchange writes raw bytes and reads exactly len(want) bytes back.
func exchange(t *testing.T, conn net.Conn, send, want string) {
	t.Helper()
	if send != "" {
		if _, err := conn.Write([]byte(send)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(ioTimeout))
	got := make([]byte, len(want))
	if _, err := io.ReadFull(conn, got); err != nil {
		t.Fatalf("read (have %q): %v", got, err)
	}
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// expectClosed asserts the server closes conn without sending anything.
func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(ioTimeout))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if n != 0 {
		t.Fatalf("unexpected bytes after protocol error: %q", buf[:n])
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		t.Fatal("connection was not closed")
	}
}

func cmd(args ...string) string {
	return string(AppendCommand(nil, args...))
}

// ============================================================
// Lifecycle Tests
// ============================================================

func TestServer_ReadyAndAddr(t *testing.T) {
	s := New(&Config{Addr: "127.0.0.1:0"})
	if s.Addr() != "" {
		t.Errorf("Addr() before Serve = %q, want empty", s.Addr())
	}

	s = startServer(t, nil)
	if _, _, err := net.SplitHostPort(s.Addr()); err != nil {
		t.Errorf("Addr() = %q: %v", s.Addr(), err)
	}
}

func TestServer_ListenError(t *testing.T) {
	s := New(&Config{Addr: "256.0.0.1:bad"})
	if err := s.Serve(context.Background()); err == nil {
		t.Fatal("Serve() should fail for an invalid address")
	}
}

func TestServer_ShutdownBeforeServe(t *testing.T) {
	s := New(nil)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestServer_ContextCancelStopsServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(&Config{Addr: "127.0.0.1:0"})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()
	<-s.Ready()

	conn, err := net.DialTimeout("tcp", s.Addr(), ioTimeout)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	exchange(t, conn, cmd("PING"), "+PONG\r\n")

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(ioTimeout):
		t.Fatal("Serve() did not return after cancel")
	}
	expectClosed(t, conn)
}

func TestServer_ShutdownClosesClients(t *testing.T) {
	s := New(&Config{Addr: "127.0.0.1:0"})
	go func() { _ = s.Serve(context.Background()) }()
	<-s.Ready()

	conn, err := net.DialTimeout("tcp", s.Addr(), ioTimeout)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	exchange(t, conn, cmd("PING"), "+PONG\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	expectClosed(t, conn)

	// Shutdown is idempotent.
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestServer_RebindAfterShutdown(t *testing.T) {
	first := New(&Config{Addr: "127.0.0.1:0"})
	go func() { _ = first.Serve(context.Background()) }()
	<-first.Ready()
	addr := first.Addr()

	conn, err := net.DialTimeout("tcp", addr, ioTimeout)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	exchange(t, conn, cmd("PING"), "+PONG\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	if err := first.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	_ = conn.Close()

	second := startServer(t, &Config{Addr: addr})
	exchange(t, dial(t, second), cmd("PING"), "+PONG\r\n")
}

// ============================================================
// Command Tests
// ============================================================

func TestServer_Ping(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	exchange(t, conn, "*1\r\n$4\r\nPING\r\n", "+PONG\r\n")
	exchange(t, conn, cmd("ping", "hi"), "$2\r\nhi\r\n")
}

func TestServer_Pipelining(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	exchange(t, conn, "*1\r\n$4\r\nPING\r\n*2\r\n$4\r\nECHO\r\n$3\r\nhey\r\n", "+PONG\r\n$3\r\nhey\r\n")
}

func TestServer_PipelineOrder(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	var send, want strings.Builder
	for i := 0; i < 200; i++ {
		v := fmt.Sprintf("v%d", i)
		send.WriteString(cmd("SET", "k", v))
		send.WriteString(cmd("GET", "k"))
		want.WriteString("+OK\r\n")
		want.WriteString(string(BulkString(v).AppendRESP(nil)))
	}
	exchange(t, conn, send.String(), want.String())
}

func TestServer_PartialFrame(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	if _, err := conn.Write([]byte("*1\r\n$4\r\nPI")); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	var ne net.Error
	if n != 0 || !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected no reply to a partial frame, got %q, %v", buf[:n], err)
	}

	exchange(t, conn, "NG\r\n", "+PONG\r\n")
}

func TestServer_SplitAcrossWrites(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	frame := cmd("ECHO", "split")
	for i := 0; i < len(frame); i++ {
		if _, err := conn.Write([]byte{frame[i]}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	exchange(t, conn, "", "$5\r\nsplit\r\n")
}

func TestServer_LargeValue(t *testing.T) {
	s := startServer(t, &Config{ReadSize: 512})
	conn := dial(t, s)

	value := strings.Repeat("x", 100_000)
	exchange(t, conn, cmd("SET", "big", value), "+OK\r\n")
	exchange(t, conn, cmd("GET", "big"), fmt.Sprintf("$%d\r\n%s\r\n", len(value), value))
}

func TestServer_SetGet(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	exchange(t, conn, cmd("GET", "k"), "$-1\r\n")
	exchange(t, conn, cmd("SET", "k", "v"), "+OK\r\n")
	exchange(t, conn, cmd("GET", "k"), "$1\r\nv\r\n")
	exchange(t, conn, cmd("SET", "bin", "a\r\nb\x00"), "+OK\r\n")
	exchange(t, conn, cmd("GET", "bin"), "$5\r\na\r\nb\x00\r\n")
	exchange(t, conn, cmd("SET", "empty", ""), "+OK\r\n")
	exchange(t, conn, cmd("GET", "empty"), "$0\r\n\r\n")
}

func TestServer_SharedKeyspace(t *testing.T) {
	s := startServer(t, nil)

	exchange(t, dial(t, s), cmd("SET", "shared", "1"), "+OK\r\n")
	exchange(t, dial(t, s), cmd("GET", "shared"), "$1\r\n1\r\n")
}

func TestServer_Expiry(t *testing.T) {
	clock := newFakeClock()
	ks := memory.NewKeyspace(memory.WithClock(clock.Now))
	s := startServer(t, nil, WithKeyspace(ks))
	conn := dial(t, s)

	exchange(t, conn, cmd("SET", "k", "v", "PX", "100"), "+OK\r\n")
	exchange(t, conn, cmd("GET", "k"), "$1\r\nv\r\n")

	clock.Advance(100 * time.Millisecond)
	exchange(t, conn, cmd("GET", "k"), "$-1\r\n")
}

func TestServer_ExpiryRealClock(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	exchange(t, conn, cmd("SET", "k", "v", "PX", "20"), "+OK\r\n")
	time.Sleep(50 * time.Millisecond)
	exchange(t, conn, cmd("GET", "k"), "$-1\r\n")
}

func TestServer_ConfigGet(t *testing.T) {
	rc := config.ParseArgs([]string{"--dir", "/tmp/data", "--dbfilename", "snap.rdb"})
	s := startServer(t, nil, WithRuntime(rc))
	conn := dial(t, s)

	exchange(t, conn, cmd("CONFIG", "GET", "dir"), "*2\r\n$3\r\ndir\r\n$9\r\n/tmp/data\r\n")
	exchange(t, conn, cmd("config", "get", "dbfilename"), "*2\r\n$10\r\ndbfilename\r\n$8\r\nsnap.rdb\r\n")
	exchange(t, conn, cmd("CONFIG", "GET", "nosuch"), "*0\r\n")
}

func TestServer_CommandErrorsKeepConnection(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	exchange(t, conn, cmd("NOPE"), "-ERR unknown command\r\n")
	exchange(t, conn, cmd("ECHO"), "-ERR wrong number of arguments for 'echo' command\r\n")
	exchange(t, conn, "*0\r\n", "-ERR unknown command\r\n")
	exchange(t, conn, cmd("PING"), "+PONG\r\n")
}

// ============================================================
// Protocol Error Tests
// ============================================================

func TestServer_ProtocolErrorClosesConnection(t *testing.T) {
	tests := []struct {
		name string
		send string
		want string
	}{
		{name: "inline command", send: "PING\r\n"},
		{name: "bad array length", send: "*x\r\n"},
		{name: "integer element", send: "*1\r\n:1\r\n"},
		{name: "bad bulk terminator", send: "*1\r\n$4\r\nPINGxx"},
		{name: "array too long", send: "*2000000\r\n"},
		{name: "signed bulk length", send: "*2\r\n$4\r\nECHO\r\n$+3\r\nabc\r\n"},
		{name: "after valid frame", send: "*1\r\n$4\r\nPING\r\n+bad\r\n", want: "+PONG\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := metric.NewRegistry()
			s := startServer(t, nil, WithMetrics(reg))
			conn := dial(t, s)

			if tt.want != "" {
				exchange(t, conn, tt.send, tt.want)
			} else if _, err := conn.Write([]byte(tt.send)); err != nil {
				t.Fatalf("write: %v", err)
			}
			expectClosed(t, conn)

			waitForMetric(t, reg, "respkv_protocol_errors_total 1")
		})
	}
}

func TestServer_ProtocolErrorIsolated(t *testing.T) {
	s := startServer(t, nil)
	good := dial(t, s)
	bad := dial(t, s)

	exchange(t, good, cmd("SET", "k", "v"), "+OK\r\n")
	if _, err := bad.Write([]byte("garbage\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectClosed(t, bad)
	exchange(t, good, cmd("GET", "k"), "$1\r\nv\r\n")
}

// ============================================================
// Concurrency Tests
// ============================================================

func TestServer_ConcurrentClients(t *testing.T) {
	s := startServer(t, nil)

	const clients = 20
	var wg sync.WaitGroup
	errCh := make(chan error, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := net.DialTimeout("tcp", s.Addr(), ioTimeout)
			if err != nil {
				errCh <- err
				return
			}
			defer conn.Close()

			key := fmt.Sprintf("key-%d", i)
			send := cmd("SET", key, key) + cmd("GET", key)
			want := "+OK\r\n" + string(BulkString(key).AppendRESP(nil))
			if _, err := conn.Write([]byte(send)); err != nil {
				errCh <- err
				return
			}

			_ = conn.SetReadDeadline(time.Now().Add(ioTimeout))
			got := make([]byte, len(want))
			if _, err := io.ReadFull(conn, got); err != nil {
				errCh <- err
				return
			}
			if string(got) != want {
				errCh <- fmt.Errorf("client %d: got %q, want %q", i, got, want)
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}
}

func TestServer_SlowClientDoesNotBlockOthers(t *testing.T) {
	s := startServer(t, nil)
	slow := dial(t, s)
	fast := dial(t, s)

	if _, err := slow.Write([]byte("*2\r\n$4\r\nECHO\r\n$10\r\nabc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	exchange(t, fast, cmd("PING"), "+PONG\r\n")
	exchange(t, slow, "defghij\r\n", "$10\r\nabcdefghij\r\n")
}

// ============================================================
// Metrics and Rate Limit Tests
// ============================================================

func scrape(t *testing.T, reg *metric.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

// waitForMetric polls until the exposition contains line.
func waitForMetric(t *testing.T, reg *metric.Registry, line string) {
	t.Helper()
	deadline := time.Now().Add(ioTimeout)
	for {
		body := scrape(t, reg)
		if strings.Contains(body, line) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("metric %q not found in:\n%s", line, body)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_ConnectionMetrics(t *testing.T) {
	reg := metric.NewRegistry()
	s := startServer(t, nil, WithMetrics(reg))

	conn := dial(t, s)
	exchange(t, conn, cmd("PING"), "+PONG\r\n")
	waitForMetric(t, reg, "respkv_connections_active 1")
	waitForMetric(t, reg, `respkv_commands_total{command="PING",status="ok"} 1`)

	_ = conn.Close()
	waitForMetric(t, reg, "respkv_connections_active 0")
	waitForMetric(t, reg, "respkv_connections_total 1")
}

func TestServer_CommandMetrics(t *testing.T) {
	reg := metric.NewRegistry()
	s := startServer(t, nil, WithMetrics(reg))
	conn := dial(t, s)

	exchange(t, conn, cmd("GET", "a", "b"), "-ERR wrong number of arguments for 'get' command\r\n")
	exchange(t, conn, cmd("NOPE"), "-ERR unknown command\r\n")

	waitForMetric(t, reg, `respkv_commands_total{command="GET",status="error"} 1`)
	waitForMetric(t, reg, `respkv_commands_total{command="unknown",status="error"} 1`)
}

func TestServer_RateLimit(t *testing.T) {
	reg := metric.NewRegistry()
	s := startServer(t, &Config{RateLimit: 1, RateBurst: 1}, WithMetrics(reg))
	conn := dial(t, s)

	exchange(t, conn, cmd("PING")+cmd("PING"), "+PONG\r\n-ERR rate limit exceeded\r\n")
	waitForMetric(t, reg, "respkv_rate_limited_total 1")
}
