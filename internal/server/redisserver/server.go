package redisserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/basant256/respkv/internal/server/config"
	"github.com/basant256/respkv/internal/storage/memory"
	"github.com/basant256/respkv/internal/telemetry/logger"
	"github.com/basant256/respkv/internal/telemetry/metric"
)

// DefaultReadSize is the size of one bounded read from a client socket.
const DefaultReadSize = 4096

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// ReadSize bounds a single read from a client (default: 4096).
	ReadSize int
	// RateLimit is the maximum number of commands per second per
	// connection. Zero disables rate limiting.
	RateLimit int
	// RateBurst is the limiter burst (default: RateLimit).
	RateBurst int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:     config.DefaultRedisAddr,
		ReadSize: DefaultReadSize,
	}
}

// Server is the RESP protocol server.
type Server struct {
	cfg     *Config
	table   *CommandTable
	ks      *memory.Keyspace
	rc      *config.Runtime
	logger  *slog.Logger
	metrics *metric.Registry

	mu        sync.RWMutex
	listener  net.Listener
	readyCh   chan struct{}
	readyOnce sync.Once

	events   chan event
	done     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	stopped  chan struct{}

	// clients is owned by the loop goroutine.
	clients map[*clientHandle]struct{}
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithKeyspace sets the keyspace served by the server.
func WithKeyspace(ks *memory.Keyspace) Option {
	return func(s *Server) {
		if ks != nil {
			s.ks = ks
		}
	}
}

// WithRuntime sets the settings answered by CONFIG GET.
func WithRuntime(rc *config.Runtime) Option {
	return func(s *Server) {
		if rc != nil {
			s.rc = rc
		}
	}
}

// New creates a RESP server. The keyspace and runtime settings must not
// be used by anything else while the server runs.
func New(cfg *Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = DefaultReadSize
	}

	s := &Server{
		cfg:     cfg,
		table:   NewCommandTable(),
		ks:      memory.NewKeyspace(),
		rc:      config.NewRuntime("", ""),
		logger:  logger.Discard(),
		metrics: metric.NewRegistry(),
		readyCh: make(chan struct{}),
		events:  make(chan event),
		done:    make(chan struct{}),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		clients: make(map[*clientHandle]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ready returns a channel that is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.readyCh
}

// Addr returns the listen address, or "" before Serve has bound it.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve binds the listener and runs the event loop until ctx is cancelled
// or Shutdown is called. It returns nil on a requested stop.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := listen(ctx, s.cfg.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("redis server listening", "address", ln.Addr().String())
	s.readyOnce.Do(func() { close(s.readyCh) })

	defer close(s.stopped)
	return s.loop(logger.WithLogger(ctx, s.logger), &listenerHandle{
		ln:    ln,
		rearm: make(chan struct{}, 1),
	})
}

// Shutdown stops the event loop, closes every client connection and waits
// for Serve to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.quitOnce.Do(func() { close(s.quit) })

	select {
	case <-s.readyCh:
	default:
		// Serve never bound a listener.
		return nil
	}

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// listen binds a TCP listener with SO_REUSEADDR.
func listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("redis server: listen %s: %w", addr, err)
	}
	return ln, nil
}
