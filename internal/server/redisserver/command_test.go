package redisserver

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/basant256/respkv/internal/server/config"
	"github.com/basant256/respkv/internal/storage/memory"
)

// fakeClock is a manually advanced clock, safe to share with the loop.
type fakeClock struct {
	ms atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.ms.Store(1_700_000_000_000)
	return c
}

func (c *fakeClock) Now() time.Time          { return time.UnixMilli(c.ms.Load()) }
func (c *fakeClock) Advance(d time.Duration) { c.ms.Add(d.Milliseconds()) }

type commandEnv struct {
	table *CommandTable
	ks    *memory.Keyspace
	rc    *config.Runtime
	clock *fakeClock
}

func newCommandEnv() *commandEnv {
	clock := newFakeClock()
	return &commandEnv{
		table: NewCommandTable(),
		ks:    memory.NewKeyspace(memory.WithClock(clock.Now)),
		rc:    config.ParseArgs([]string{"--dir", "/tmp/data", "--dbfilename", "dump.rdb"}),
		clock: clock,
	}
}

// run dispatches a command and returns its encoded reply.
func (e *commandEnv) run(args ...string) string {
	frame := make([][]byte, len(args))
	for i, a := range args {
		frame[i] = []byte(a)
	}
	return string(e.table.Dispatch(frame, e.ks, e.rc).AppendRESP(nil))
}

// ============================================================
// Dispatch Tests
// ============================================================

func TestDispatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "PING", args: []string{"PING"}, want: "+PONG\r\n"},
		{name: "ping lower case", args: []string{"ping"}, want: "+PONG\r\n"},
		{name: "PING with message", args: []string{"PING", "hello"}, want: "$5\r\nhello\r\n"},
		{name: "PING too many args", args: []string{"PING", "a", "b"}, want: "-ERR wrong number of arguments for 'ping' command\r\n"},
		{name: "ECHO", args: []string{"ECHO", "hey"}, want: "$3\r\nhey\r\n"},
		{name: "ECHO empty", args: []string{"echo", ""}, want: "$0\r\n\r\n"},
		{name: "ECHO no args", args: []string{"ECHO"}, want: "-ERR wrong number of arguments for 'echo' command\r\n"},
		{name: "ECHO two args", args: []string{"ECHO", "a", "b"}, want: "-ERR wrong number of arguments for 'echo' command\r\n"},
		{name: "ECHO three args", args: []string{"EcHo", "a", "b", "c"}, want: "-ERR wrong number of arguments for 'echo' command\r\n"},
		{name: "SET one arg", args: []string{"SET", "k"}, want: "-ERR wrong number of arguments for 'set' command\r\n"},
		{name: "SET three args", args: []string{"SET", "k", "v", "PX"}, want: "-ERR wrong number of arguments for 'set' command\r\n"},
		{name: "SET five args", args: []string{"SET", "k", "v", "PX", "1", "x"}, want: "-ERR wrong number of arguments for 'set' command\r\n"},
		{name: "SET unknown option", args: []string{"SET", "k", "v", "EX", "10"}, want: "-ERR syntax error\r\n"},
		{name: "GET missing", args: []string{"GET", "nope"}, want: "$-1\r\n"},
		{name: "GET no args", args: []string{"GET"}, want: "-ERR wrong number of arguments for 'get' command\r\n"},
		{name: "CONFIG GET dir", args: []string{"CONFIG", "GET", "dir"}, want: "*2\r\n$3\r\ndir\r\n$9\r\n/tmp/data\r\n"},
		{name: "CONFIG GET dbfilename", args: []string{"config", "get", "dbfilename"}, want: "*2\r\n$10\r\ndbfilename\r\n$8\r\ndump.rdb\r\n"},
		{name: "CONFIG GET upper-case name", args: []string{"CONFIG", "GET", "DIR"}, want: "*2\r\n$3\r\ndir\r\n$9\r\n/tmp/data\r\n"},
		{name: "CONFIG GET unknown", args: []string{"CONFIG", "GET", "nosuch"}, want: "*0\r\n"},
		{name: "CONFIG GET no name", args: []string{"CONFIG", "GET"}, want: "-ERR wrong number of arguments for 'config' command\r\n"},
		{name: "CONFIG SET", args: []string{"CONFIG", "SET", "dir", "/x"}, want: "-ERR wrong number of arguments for 'config' command\r\n"},
		{name: "CONFIG unknown subcommand", args: []string{"CONFIG", "RESETSTAT", "x"}, want: "-ERR unknown subcommand 'RESETSTAT'\r\n"},
		{name: "unknown command", args: []string{"FLUSHALL"}, want: "-ERR unknown command\r\n"},
		{name: "unknown command with args", args: []string{"DEL", "k"}, want: "-ERR unknown command\r\n"},
		{name: "empty frame", args: []string{}, want: "-ERR unknown command\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCommandEnv()
			if got := env.run(tt.args...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetGet_RoundTrip(t *testing.T) {
	values := []string{"v", "", "with space", "a\r\nb", "\x00\xff"}

	for _, v := range values {
		env := newCommandEnv()
		if got := env.run("SET", "k", v); got != "+OK\r\n" {
			t.Fatalf("SET = %q", got)
		}
		want := string(BulkString(v).AppendRESP(nil))
		if got := env.run("GET", "k"); got != want {
			t.Errorf("GET = %q, want %q", got, want)
		}
	}
}

func TestSet_KeysAreCaseSensitive(t *testing.T) {
	env := newCommandEnv()
	env.run("SET", "key", "lower")
	env.run("SET", "KEY", "upper")

	if got := env.run("GET", "key"); got != "$5\r\nlower\r\n" {
		t.Errorf("GET key = %q", got)
	}
	if got := env.run("GET", "KEY"); got != "$5\r\nupper\r\n" {
		t.Errorf("GET KEY = %q", got)
	}
}

func TestSet_PXZeroExpiresImmediately(t *testing.T) {
	env := newCommandEnv()
	env.run("SET", "k", "v", "PX", "0")

	if got := env.run("GET", "k"); got != "$-1\r\n" {
		t.Errorf("GET = %q, want null", got)
	}
	if env.ks.Len() != 0 {
		t.Error("expired key was not purged by GET")
	}
}

func TestSet_PXLongLived(t *testing.T) {
	env := newCommandEnv()
	env.run("SET", "k", "v", "px", "100000")
	env.clock.Advance(5 * time.Millisecond)

	if got := env.run("GET", "k"); got != "$1\r\nv\r\n" {
		t.Errorf("GET = %q, want v", got)
	}
}

func TestSet_PXDeadline(t *testing.T) {
	env := newCommandEnv()
	env.run("SET", "k", "v", "PX", "100")

	env.clock.Advance(99 * time.Millisecond)
	if got := env.run("GET", "k"); got != "$1\r\nv\r\n" {
		t.Fatalf("GET before deadline = %q", got)
	}

	env.clock.Advance(time.Millisecond)
	if got := env.run("GET", "k"); got != "$-1\r\n" {
		t.Fatalf("GET at deadline = %q, want null", got)
	}
}

func TestSet_NegativePXExpires(t *testing.T) {
	env := newCommandEnv()
	if got := env.run("SET", "k", "v", "PX", "-5"); got != "+OK\r\n" {
		t.Fatalf("SET = %q", got)
	}
	if got := env.run("GET", "k"); got != "$-1\r\n" {
		t.Errorf("GET = %q, want null", got)
	}
}

func TestSet_OverwriteClearsExpiry(t *testing.T) {
	env := newCommandEnv()
	env.run("SET", "k", "v1", "PX", "50")
	env.run("SET", "k", "v2")
	env.clock.Advance(100 * time.Millisecond)

	if got := env.run("GET", "k"); got != "$2\r\nv2\r\n" {
		t.Errorf("GET = %q, want v2", got)
	}
}

func TestSet_InvalidPXDoesNotMutate(t *testing.T) {
	env := newCommandEnv()
	env.run("SET", "k", "old")

	if got := env.run("SET", "k", "new", "PX", "soon"); got != "-ERR PX value is not an integer\r\n" {
		t.Fatalf("SET = %q", got)
	}
	if got := env.run("GET", "k"); got != "$3\r\nold\r\n" {
		t.Errorf("GET = %q, want old", got)
	}

	if got := env.run("SET", "fresh", "v", "PX", "1.5"); got != "-ERR PX value is not an integer\r\n" {
		t.Fatalf("SET = %q", got)
	}
	if got := env.run("GET", "fresh"); got != "$-1\r\n" {
		t.Errorf("GET fresh = %q, want null", got)
	}
}

func TestSet_PXOverflow(t *testing.T) {
	env := newCommandEnv()
	if got := env.run("SET", "k", "v", "PX", "9223372036854775807"); got != "-ERR invalid expire time in 'set' command\r\n" {
		t.Errorf("SET = %q", got)
	}
	if got := env.run("GET", "k"); got != "$-1\r\n" {
		t.Errorf("GET = %q, want null", got)
	}
}

func TestCommandTable_Lookup(t *testing.T) {
	table := NewCommandTable()

	tests := []struct {
		name     string
		want     string
		mutating bool
	}{
		{name: "ping", want: "PING"},
		{name: "Echo", want: "ECHO"},
		{name: "set", want: "SET", mutating: true},
		{name: "GET", want: "GET"},
		{name: "config", want: "CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := table.Lookup([]byte(tt.name))
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.name)
			}
			if c.Name != tt.want {
				t.Errorf("Name = %q, want %q", c.Name, tt.want)
			}
			if c.Mutating != tt.mutating {
				t.Errorf("Mutating = %v, want %v", c.Mutating, tt.mutating)
			}
		})
	}

	if _, ok := table.Lookup([]byte("DEL")); ok {
		t.Error("Lookup(DEL) should fail")
	}
	if got := len(table.Names()); got != 5 {
		t.Errorf("len(Names()) = %d, want 5", got)
	}
}
