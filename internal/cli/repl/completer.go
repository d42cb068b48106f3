package repl

import (
	"sort"
	"strings"
)

// Completer matches command names by prefix, ignoring case.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over names. The REPL's own commands
// are always included.
func NewCompleter(names ...string) *Completer {
	seen := make(map[string]bool)
	var commands []string
	for _, name := range append(names, "HELP", "EXIT", "QUIT") {
		name = strings.ToUpper(name)
		if !seen[name] {
			seen[name] = true
			commands = append(commands, name)
		}
	}
	sort.Strings(commands)
	return &Completer{commands: commands}
}

// Complete returns the sorted command names starting with prefix.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToUpper(prefix)
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}
