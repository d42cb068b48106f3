package redisserver

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/basant256/respkv/internal/core/domain"
	"github.com/basant256/respkv/internal/server/config"
	"github.com/basant256/respkv/internal/storage/memory"
)

// commandFunc executes a command whose arity has already been checked.
// args excludes the command name.
type commandFunc func(args [][]byte, ks *memory.Keyspace, rc *config.Runtime) Reply

// Command describes one entry of the command table.
type Command struct {
	// Name is the upper-case command name.
	Name string
	// MinArgs and MaxArgs bound the argument count, command name excluded.
	MinArgs int
	MaxArgs int
	// Mutating reports whether the command writes to the keyspace.
	Mutating bool

	run commandFunc
}

// CommandTable resolves command names and executes them.
type CommandTable struct {
	cmds map[string]*Command
}

// NewCommandTable returns the table of supported commands.
func NewCommandTable() *CommandTable {
	t := &CommandTable{cmds: make(map[string]*Command)}

	t.register(&Command{Name: "PING", MinArgs: 0, MaxArgs: 1, run: cmdPing})
	t.register(&Command{Name: "ECHO", MinArgs: 1, MaxArgs: 1, run: cmdEcho})
	t.register(&Command{Name: "SET", MinArgs: 2, MaxArgs: 4, Mutating: true, run: cmdSet})
	t.register(&Command{Name: "GET", MinArgs: 1, MaxArgs: 1, run: cmdGet})
	t.register(&Command{Name: "CONFIG", MinArgs: 2, MaxArgs: 2, run: cmdConfig})

	return t
}

func (t *CommandTable) register(c *Command) {
	t.cmds[c.Name] = c
}

// Lookup finds a command by name, ignoring case.
func (t *CommandTable) Lookup(name []byte) (*Command, bool) {
	c, ok := t.cmds[normalizeCommandName(name)]
	return c, ok
}

// Names returns the registered command names.
func (t *CommandTable) Names() []string {
	out := make([]string, 0, len(t.cmds))
	for name := range t.cmds {
		out = append(out, name)
	}
	return out
}

// Dispatch executes the command frame args (name first) against ks and rc.
// Command-level failures are returned as Error replies.
func (t *CommandTable) Dispatch(args [][]byte, ks *memory.Keyspace, rc *config.Runtime) Reply {
	if len(args) == 0 {
		return errUnknownCommand
	}

	c, ok := t.Lookup(args[0])
	if !ok {
		return errUnknownCommand
	}

	params := args[1:]
	if len(params) < c.MinArgs || len(params) > c.MaxArgs {
		return wrongArity(strings.ToLower(c.Name))
	}
	return c.run(params, ks, rc)
}

func cmdPing(args [][]byte, _ *memory.Keyspace, _ *config.Runtime) Reply {
	if len(args) == 1 {
		return BulkString(args[0])
	}
	return replyPong
}

func cmdEcho(args [][]byte, _ *memory.Keyspace, _ *config.Runtime) Reply {
	return BulkString(args[0])
}

// cmdSet handles SET key value [PX milliseconds].
func cmdSet(args [][]byte, ks *memory.Keyspace, _ *config.Runtime) Reply {
	expiresAt := domain.NoExpiry

	switch len(args) {
	case 2:
	case 4:
		if !bytes.EqualFold(args[2], []byte("PX")) {
			return errSyntax
		}
		ms, err := strconv.ParseInt(string(args[3]), 10, 64)
		if err != nil {
			return errPXNotInteger
		}
		now := ks.NowMillis()
		if ms > 0 && ms > math.MaxInt64-now {
			return errInvalidExpire
		}
		expiresAt = domain.ExpiryAfter(now, ms)
	default:
		return wrongArity("set")
	}

	ks.Write(string(args[0]), args[1], expiresAt)
	return replyOK
}

func cmdGet(args [][]byte, ks *memory.Keyspace, _ *config.Runtime) Reply {
	v, ok := ks.Read(string(args[0]))
	if !ok {
		return NullBulkString
	}
	return BulkString(v)
}

// cmdConfig handles CONFIG GET parameter.
func cmdConfig(args [][]byte, _ *memory.Keyspace, rc *config.Runtime) Reply {
	if !bytes.EqualFold(args[0], []byte("GET")) {
		return Error(fmt.Sprintf("ERR unknown subcommand '%s'", args[0]))
	}

	name, value, ok := rc.Get(string(args[1]))
	if !ok {
		return Array{}
	}
	return Array{[]byte(name), []byte(value)}
}
