package connection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/basant256/respkv/internal/server/redisserver"
)

// DefaultTimeout bounds dialing and each command round trip.
const DefaultTimeout = 5 * time.Second

// ErrNoCommand is returned by Do when called without arguments.
var ErrNoCommand = errors.New("connection: empty command")

// Client is a RESP client. It is not safe for concurrent use.
type Client struct {
	addr    string
	timeout time.Duration

	conn net.Conn
	r    *bufio.Reader
	buf  []byte
}

// NewClient creates a client for addr. The connection is opened lazily.
func NewClient(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{addr: addr, timeout: timeout}
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Connect dials the server if not already connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.addr, err)
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	return nil
}

// Do sends one command and returns its reply. Error replies from the
// server are returned as values, not errors. Transport failures close
// the connection; the next call reconnects.
func (c *Client) Do(ctx context.Context, args ...string) (redisserver.Value, error) {
	if len(args) == 0 {
		return redisserver.Value{}, ErrNoCommand
	}
	if err := c.Connect(ctx); err != nil {
		return redisserver.Value{}, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	c.buf = redisserver.AppendCommand(c.buf[:0], args...)
	if _, err := c.conn.Write(c.buf); err != nil {
		c.reset()
		return redisserver.Value{}, fmt.Errorf("send: %w", err)
	}

	v, err := redisserver.ReadReply(c.r)
	if err != nil {
		c.reset()
		return redisserver.Value{}, fmt.Errorf("read reply: %w", err)
	}
	return v, nil
}

// Close closes the connection, if any.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.r = nil, nil
	return err
}

func (c *Client) reset() {
	_ = c.Close()
}
