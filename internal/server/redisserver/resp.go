package redisserver

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Protocol limits.
const (
	// MaxArrayLen limits the number of elements in a request frame.
	MaxArrayLen = 1024 * 1024

	// MaxBulkLen limits the size of a single bulk string (512MB).
	MaxBulkLen = 512 * 1024 * 1024

	// maxHeaderLen limits a `*<n>` or `$<n>` header line, CRLF excluded.
	maxHeaderLen = 64
)

var (
	// ErrIncomplete reports that the buffer holds only part of a frame.
	// It is not a failure: read more bytes and decode again.
	ErrIncomplete = errors.New("resp: incomplete frame")

	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

var crlf = []byte("\r\n")

// Decode parses one request frame from the start of buf: an array header
// `*<n>\r\n` followed by n bulk strings `$<len>\r\n<bytes>\r\n`.
//
// On success it returns the elements and the number of bytes consumed.
// Elements alias buf. If buf holds an incomplete frame, Decode returns
// ErrIncomplete and consumes nothing. Malformed input yields an error
// wrapping ErrProtocol or ErrLimitExceeded.
//
// `*0` and `*-1` decode to a frame with no elements.
func Decode(buf []byte) (args [][]byte, n int, err error) {
	c := cursor{buf: buf}

	count, err := c.header('*')
	if err != nil {
		return nil, 0, err
	}
	if count < -1 {
		return nil, 0, fmt.Errorf("%w: invalid array length %d", ErrProtocol, count)
	}
	if count > MaxArrayLen {
		return nil, 0, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, count, MaxArrayLen)
	}
	if count <= 0 {
		return [][]byte{}, c.pos, nil
	}

	args = make([][]byte, 0, min(count, 16))
	for i := 0; i < count; i++ {
		arg, err := c.bulk()
		if err != nil {
			return nil, 0, err
		}
		args = append(args, arg)
	}
	return args, c.pos, nil
}

// cursor walks a byte buffer without copying.
type cursor struct {
	buf []byte
	pos int
}

// header reads a `<sigil><integer>\r\n` line.
func (c *cursor) header(sigil byte) (int, error) {
	if c.pos >= len(c.buf) {
		return 0, ErrIncomplete
	}
	if c.buf[c.pos] != sigil {
		return 0, fmt.Errorf("%w: expected '%c', got %q", ErrProtocol, sigil, c.buf[c.pos])
	}

	line, err := c.line()
	if err != nil {
		return 0, err
	}

	n, err := parseLength(string(line[1:]))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid length %q", ErrProtocol, line[1:])
	}
	if n > int64(MaxBulkLen) {
		// Both limits are far below this; clamp before converting to int.
		n = int64(MaxBulkLen) + 1
	}
	return int(n), nil
}

// parseLength parses a length field: decimal digits with an optional
// leading minus. A '+' sign is rejected.
func parseLength(s string) (int64, error) {
	if s == "" || s[0] == '+' {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, 10, 64)
}

// line returns the bytes up to the next CRLF and advances past it.
func (c *cursor) line() ([]byte, error) {
	rest := c.buf[c.pos:]
	window := rest
	if len(window) > maxHeaderLen+2 {
		window = window[:maxHeaderLen+2]
	}

	i := bytes.Index(window, crlf)
	if i < 0 {
		if len(rest) >= maxHeaderLen+2 {
			return nil, fmt.Errorf("%w: header line exceeds %d bytes", ErrLimitExceeded, maxHeaderLen)
		}
		return nil, ErrIncomplete
	}

	c.pos += i + 2
	return rest[:i], nil
}

// bulk reads a `$<len>\r\n<bytes>\r\n` element.
func (c *cursor) bulk() ([]byte, error) {
	n, err := c.header('$')
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
	}
	if n > MaxBulkLen {
		return nil, fmt.Errorf("%w: bulk length exceeds limit %d", ErrLimitExceeded, MaxBulkLen)
	}

	if len(c.buf)-c.pos < n+2 {
		return nil, ErrIncomplete
	}
	body := c.buf[c.pos : c.pos+n : c.pos+n]
	if c.buf[c.pos+n] != '\r' || c.buf[c.pos+n+1] != '\n' {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	c.pos += n + 2
	return body, nil
}

// AppendSimpleString appends `+s\r\n` to dst.
func AppendSimpleString(dst []byte, s string) []byte {
	dst = append(dst, '+')
	dst = append(dst, s...)
	return append(dst, crlf...)
}

// AppendError appends `-msg\r\n` to dst.
func AppendError(dst []byte, msg string) []byte {
	dst = append(dst, '-')
	dst = append(dst, msg...)
	return append(dst, crlf...)
}

// AppendInteger appends `:n\r\n` to dst.
func AppendInteger(dst []byte, n int64) []byte {
	dst = append(dst, ':')
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, crlf...)
}

// AppendNullBulkString appends `$-1\r\n` to dst.
func AppendNullBulkString(dst []byte) []byte {
	return append(dst, "$-1\r\n"...)
}

// AppendBulkString appends b as a bulk string. A nil b is encoded as the
// null bulk string; an empty non-nil b as `$0\r\n\r\n`.
func AppendBulkString(dst []byte, b []byte) []byte {
	if b == nil {
		return AppendNullBulkString(dst)
	}
	return appendBulk(dst, b)
}

func appendBulk(dst []byte, b []byte) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, crlf...)
	dst = append(dst, b...)
	return append(dst, crlf...)
}

// AppendArray appends an array of bulk strings to dst.
func AppendArray(dst []byte, items [][]byte) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(items)), 10)
	dst = append(dst, crlf...)
	for _, item := range items {
		dst = AppendBulkString(dst, item)
	}
	return dst
}

// AppendCommand encodes a request frame. Used by clients.
func AppendCommand(dst []byte, args ...string) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, crlf...)
	for _, a := range args {
		dst = appendBulk(dst, []byte(a))
	}
	return dst
}

func normalizeCommandName(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	// Uppercase ASCII without allocating for already uppercased tokens.
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return string(bytes.ToUpper(b))
	}
	return string(b)
}
