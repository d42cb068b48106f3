package redisserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/basant256/respkv/internal/telemetry/logger"
	"github.com/basant256/respkv/internal/telemetry/metric"
)

// maxIdleBufCap is the input buffer capacity kept for an idle client.
const maxIdleBufCap = 64 * 1024

// handle is a descriptor registered with the event loop: either the
// listening socket or a connected client.
type handle interface {
	rearmCh() chan struct{}
}

// listenerHandle is the listening socket, awaiting accept.
type listenerHandle struct {
	ln    net.Listener
	rearm chan struct{}
}

// clientHandle is a connected client. All fields except conn and rearm
// are owned by the loop goroutine.
type clientHandle struct {
	id      string
	conn    net.Conn
	log     *slog.Logger
	buf     []byte
	out     []byte
	limiter *rate.Limiter
	rearm   chan struct{}
	closed  bool
}

func (h *listenerHandle) rearmCh() chan struct{} { return h.rearm }
func (h *clientHandle) rearmCh() chan struct{}   { return h.rearm }

// event reports that a handle became ready.
type event struct {
	h handle
	// conn is the accepted connection (listener events).
	conn net.Conn
	// data holds the bytes of one read (client events). It is only valid
	// until the handle is re-armed.
	data []byte
	err  error
}

// loop runs until ctx is done, Shutdown is called, or the listener fails.
func (s *Server) loop(ctx context.Context, lh *listenerHandle) error {
	go s.acceptPump(lh)

	var loopErr error
	for loopErr == nil {
		select {
		case <-ctx.Done():
			s.stop(lh)
			return nil
		case <-s.quit:
			s.stop(lh)
			return nil
		case ev := <-s.events:
			switch h := ev.h.(type) {
			case *listenerHandle:
				loopErr = s.onAcceptable(ctx, h, ev)
			case *clientHandle:
				s.onReadable(h, ev)
			}
		}
	}

	s.stop(lh)
	return loopErr
}

// stop releases the listener and every client.
func (s *Server) stop(lh *listenerHandle) {
	close(s.done)
	_ = lh.ln.Close()
	for c := range s.clients {
		s.deregister(c, "server shutdown")
	}
	s.logger.Info("redis server stopped")
}

// onAcceptable registers a freshly accepted connection.
func (s *Server) onAcceptable(ctx context.Context, lh *listenerHandle, ev event) error {
	if ev.err != nil {
		s.logger.Error("redis server accept failed", "error", ev.err)
		return ev.err
	}

	id := ulid.Make().String()
	c := &clientHandle{
		id:    id,
		conn:  ev.conn,
		log:   logger.L(logger.WithConnID(ctx, id)),
		rearm: make(chan struct{}, 1),
	}
	if s.cfg.RateLimit > 0 {
		burst := s.cfg.RateBurst
		if burst <= 0 {
			burst = s.cfg.RateLimit
		}
		c.limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
	}

	s.clients[c] = struct{}{}
	s.metrics.ConnOpened()
	c.log.Debug("client connected", "remote", ev.conn.RemoteAddr().String())

	go s.readPump(c)
	rearm(lh)
	return nil
}

// onReadable handles one read from a client: buffer it, answer every
// complete frame, then re-arm the reader or release the connection.
func (s *Server) onReadable(c *clientHandle, ev event) {
	if c.closed {
		return
	}

	if len(ev.data) > 0 {
		c.buf = append(c.buf, ev.data...)
		if !s.drain(c) {
			return
		}
	}

	if ev.err != nil || len(ev.data) == 0 {
		reason := "peer closed"
		if ev.err != nil && !errors.Is(ev.err, io.EOF) {
			reason = ev.err.Error()
		}
		s.deregister(c, reason)
		return
	}

	rearm(c)
}

// rearm lets the handle's pump wait for its next event.
func rearm(h handle) {
	h.rearmCh() <- struct{}{}
}

// drain decodes and answers every complete frame in c.buf. It reports
// false if the connection was released.
func (s *Server) drain(c *clientHandle) bool {
	out := c.out[:0]
	consumed := 0
	var protoErr error

	for {
		args, n, err := Decode(c.buf[consumed:])
		if errors.Is(err, ErrIncomplete) {
			break
		}
		if err != nil {
			protoErr = err
			break
		}
		consumed += n
		out = s.execute(c, args).AppendRESP(out)
	}

	// Keep the unparsed tail at the front of the buffer.
	rest := copy(c.buf, c.buf[consumed:])
	c.buf = c.buf[:rest]
	if rest == 0 && cap(c.buf) > maxIdleBufCap {
		c.buf = nil
	}

	if len(out) > 0 {
		if _, err := c.conn.Write(out); err != nil {
			s.deregister(c, "write: "+err.Error())
			return false
		}
	}
	if cap(out) <= maxIdleBufCap {
		c.out = out[:0]
	} else {
		c.out = nil
	}

	if protoErr != nil {
		s.metrics.IncProtocolErrors()
		if errors.Is(protoErr, ErrLimitExceeded) {
			c.log.Warn("protocol limit exceeded", "error", protoErr)
		}
		s.deregister(c, protoErr.Error())
		return false
	}
	return true
}

// execute runs one command frame.
func (s *Server) execute(c *clientHandle, args [][]byte) Reply {
	name := "unknown"
	if len(args) > 0 {
		if cmd, ok := s.table.Lookup(args[0]); ok {
			name = cmd.Name
		}
	}

	if c.limiter != nil && !c.limiter.Allow() {
		s.metrics.IncRateLimited()
		return errRateLimited
	}

	start := time.Now()
	reply := s.table.Dispatch(args, s.ks, s.rc)

	status := metric.StatusOK
	if e, ok := reply.(Error); ok {
		status = metric.StatusError
		attrs := []any{"command", name, "error", e}
		if len(args) > 1 {
			attrs = append(attrs, "arg", logger.Payload(args[1]))
		}
		c.log.Debug("command failed", attrs...)
	}
	s.metrics.RecordCommand(name, status, time.Since(start).Seconds())
	return reply
}

// deregister releases a client. It is idempotent.
func (s *Server) deregister(c *clientHandle, reason string) {
	if c.closed {
		return
	}
	c.closed = true
	delete(s.clients, c)
	close(c.rearm)
	_ = c.conn.Close()
	s.metrics.ConnClosed()
	c.log.Debug("client disconnected", "reason", reason)
}

// acceptPump accepts one connection per listener event. It waits for the
// loop to register the connection before accepting the next one.
func (s *Server) acceptPump(lh *listenerHandle) {
	var backoff time.Duration
	for {
		conn, err := lh.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if (errors.As(err, &ne) && ne.Timeout()) || isTransientAcceptErr(err) {
				backoff = nextBackoff(backoff)
				s.logger.Warn("redis server accept error, retrying", "error", err, "backoff", backoff)
				select {
				case <-time.After(backoff):
					continue
				case <-s.done:
					return
				}
			}
		}
		backoff = 0

		select {
		case s.events <- event{h: lh, conn: conn, err: err}:
		case <-s.done:
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			return
		}

		select {
		case <-lh.rearm:
		case <-s.done:
			return
		}
	}
}

// readPump performs one bounded read per client event.
func (s *Server) readPump(c *clientHandle) {
	buf := make([]byte, s.cfg.ReadSize)
	for {
		n, err := c.conn.Read(buf)

		select {
		case s.events <- event{h: c, data: buf[:n], err: err}:
		case <-s.done:
			return
		}
		if err != nil || n == 0 {
			return
		}

		select {
		case _, ok := <-c.rearm:
			if !ok {
				return
			}
		case <-s.done:
			return
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}
