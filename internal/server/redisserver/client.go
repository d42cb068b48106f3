package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Value is a decoded reply, as seen by a client.
type Value struct {
	// Kind is the type sigil: '+', '-', ':', '$' or '*'.
	Kind  byte
	Str   string
	Int   int64
	Bulk  []byte
	Array []Value
	// Null is set for `$-1` and `*-1`.
	Null bool
}

// maxReplyLine limits a simple string, error or header line in a reply.
const maxReplyLine = 64 * 1024

// ReadReply reads one reply from r.
func ReadReply(r *bufio.Reader) (Value, error) {
	line, err := readLine(r, maxReplyLine)
	if err != nil {
		return Value{}, err
	}
	if line == "" {
		return Value{}, fmt.Errorf("%w: empty reply line", ErrProtocol)
	}

	kind, body := line[0], line[1:]
	switch kind {
	case '+', '-':
		return Value{Kind: kind, Str: body}, nil
	case ':':
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid integer", ErrProtocol)
		}
		return Value{Kind: kind, Int: n}, nil
	case '$':
		n64, err := parseLength(body)
		if err != nil || n64 > int64(MaxBulkLen) {
			return Value{}, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
		}
		n := int(n64)
		if n == -1 {
			return Value{Kind: kind, Null: true}, nil
		}
		if n < 0 || n > MaxBulkLen {
			return Value{}, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
		}
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Value{}, err
		}
		if !bytes.HasSuffix(buf, crlf) {
			return Value{}, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}
		return Value{Kind: kind, Bulk: buf[:n]}, nil
	case '*':
		n64, err := parseLength(body)
		if err != nil || n64 > int64(MaxBulkLen) {
			return Value{}, fmt.Errorf("%w: invalid array length", ErrProtocol)
		}
		n := int(n64)
		if n == -1 {
			return Value{Kind: kind, Null: true}, nil
		}
		if n < 0 || n > MaxArrayLen {
			return Value{}, fmt.Errorf("%w: invalid array length %d", ErrProtocol, n)
		}
		items := make([]Value, 0, min(n, 16))
		for i := 0; i < n; i++ {
			v, err := ReadReply(r)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{Kind: kind, Array: items}, nil
	default:
		return Value{}, fmt.Errorf("%w: unexpected reply type %q", ErrProtocol, kind)
	}
}

// Format renders v the way redis-cli does.
func (v Value) Format() string {
	var sb strings.Builder
	v.format(&sb, "")
	return sb.String()
}

func (v Value) format(sb *strings.Builder, indent string) {
	switch v.Kind {
	case '+':
		sb.WriteString(v.Str)
	case '-':
		sb.WriteString("(error) " + v.Str)
	case ':':
		sb.WriteString("(integer) " + strconv.FormatInt(v.Int, 10))
	case '$':
		if v.Null {
			sb.WriteString("(nil)")
			return
		}
		sb.WriteString(strconv.Quote(string(v.Bulk)))
	case '*':
		if v.Null {
			sb.WriteString("(nil)")
			return
		}
		if len(v.Array) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		for i, item := range v.Array {
			if i > 0 {
				sb.WriteString("\n" + indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			sb.WriteString(prefix)
			item.format(sb, indent+strings.Repeat(" ", len(prefix)))
		}
	}
}

func readLine(r *bufio.Reader, maxLen int) (string, error) {
	if maxLen <= 0 {
		return "", fmt.Errorf("%w: invalid maxLen", ErrProtocol)
	}

	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLen {
				return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
			}
			continue
		}
		return "", err
	}

	if len(buf) > maxLen {
		return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
	}
	if len(buf) < 2 || !bytes.HasSuffix(buf, crlf) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}

	return string(buf[:len(buf)-2]), nil
}
