package redisserver

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func readReply(s string) (Value, error) {
	return ReadReply(bufio.NewReader(strings.NewReader(s)))
}

func TestReadReply(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format string
	}{
		{name: "simple string", input: "+OK\r\n", format: "OK"},
		{name: "error", input: "-ERR unknown command\r\n", format: "(error) ERR unknown command"},
		{name: "integer", input: ":42\r\n", format: "(integer) 42"},
		{name: "negative integer", input: ":-1\r\n", format: "(integer) -1"},
		{name: "bulk string", input: "$5\r\nhello\r\n", format: `"hello"`},
		{name: "binary bulk string", input: "$4\r\na\r\n\x00\r\n", format: `"a\r\n\x00"`},
		{name: "empty bulk string", input: "$0\r\n\r\n", format: `""`},
		{name: "null bulk string", input: "$-1\r\n", format: "(nil)"},
		{name: "empty array", input: "*0\r\n", format: "(empty array)"},
		{name: "null array", input: "*-1\r\n", format: "(nil)"},
		{name: "array", input: "*2\r\n$3\r\ndir\r\n$4\r\n/tmp\r\n", format: "1) \"dir\"\n2) \"/tmp\""},
		{
			name:   "nested array",
			input:  "*2\r\n:1\r\n*2\r\n+a\r\n$-1\r\n",
			format: "1) (integer) 1\n2) 1) a\n   2) (nil)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := readReply(tt.input)
			if err != nil {
				t.Fatalf("ReadReply() error = %v", err)
			}
			if got := v.Format(); got != tt.format {
				t.Errorf("Format() = %q, want %q", got, tt.format)
			}
		})
	}
}

func TestReadReply_Values(t *testing.T) {
	v, err := readReply("*3\r\n$1\r\na\r\n:7\r\n$-1\r\n")
	if err != nil {
		t.Fatalf("ReadReply() error = %v", err)
	}
	if v.Kind != '*' || len(v.Array) != 3 {
		t.Fatalf("unexpected value %+v", v)
	}
	if string(v.Array[0].Bulk) != "a" {
		t.Errorf("Array[0] = %q", v.Array[0].Bulk)
	}
	if v.Array[1].Int != 7 {
		t.Errorf("Array[1] = %d", v.Array[1].Int)
	}
	if !v.Array[2].Null {
		t.Error("Array[2] should be null")
	}
}

func TestReadReply_Sequence(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("+PONG\r\n$3\r\nhey\r\n"))

	first, err := ReadReply(r)
	if err != nil || first.Str != "PONG" {
		t.Fatalf("first reply = %+v, %v", first, err)
	}
	second, err := ReadReply(r)
	if err != nil || string(second.Bulk) != "hey" {
		t.Fatalf("second reply = %+v, %v", second, err)
	}
	if _, err := ReadReply(r); !errors.Is(err, io.EOF) {
		t.Errorf("third ReadReply() error = %v, want EOF", err)
	}
}

func TestReadReply_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "empty line", input: "\r\n", want: ErrProtocol},
		{name: "unknown type", input: "?x\r\n", want: ErrProtocol},
		{name: "bad integer", input: ":abc\r\n", want: ErrProtocol},
		{name: "bad bulk length", input: "$x\r\n", want: ErrProtocol},
		{name: "negative bulk length", input: "$-2\r\n", want: ErrProtocol},
		{name: "bad bulk terminator", input: "$2\r\nabXX", want: ErrProtocol},
		{name: "bad array length", input: "*x\r\n", want: ErrProtocol},
		{name: "plus-signed bulk length", input: "$+2\r\nab\r\n", want: ErrProtocol},
		{name: "plus-signed array length", input: "*+1\r\n+a\r\n", want: ErrProtocol},
		{name: "missing CRLF", input: "+OK\n", want: ErrProtocol},
		{name: "line too long", input: "+" + strings.Repeat("a", maxReplyLine+10) + "\r\n", want: ErrLimitExceeded},
		{name: "truncated bulk", input: "$5\r\nab", want: io.ErrUnexpectedEOF},
		{name: "truncated array", input: "*2\r\n+a\r\n", want: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := readReply(tt.input); !errors.Is(err, tt.want) {
				t.Errorf("ReadReply() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadReply_EncoderRoundTrip(t *testing.T) {
	var buf []byte
	buf = AppendSimpleString(buf, "OK")
	buf = AppendError(buf, "ERR boom")
	buf = AppendInteger(buf, 12)
	buf = AppendBulkString(buf, []byte("v"))
	buf = AppendBulkString(buf, nil)
	buf = AppendArray(buf, [][]byte{[]byte("x")})

	want := []string{"OK", "(error) ERR boom", "(integer) 12", `"v"`, "(nil)", `1) "x"`}

	r := bufio.NewReader(strings.NewReader(string(buf)))
	for i, w := range want {
		v, err := ReadReply(r)
		if err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
		if got := v.Format(); got != w {
			t.Errorf("reply %d = %q, want %q", i, got, w)
		}
	}
}
