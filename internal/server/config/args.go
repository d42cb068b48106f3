package config

import "strings"

// ParseArgs builds the runtime settings from startup arguments of the
// form `--name value`. Unrecognized tokens are skipped one at a time, and
// a recognized flag with no following value is ignored.
func ParseArgs(args []string) *Runtime {
	var dir, dbFilename string

	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			break
		}
		switch args[i] {
		case "--" + SettingDir:
			dir = args[i+1]
			i++
		case "--" + SettingDBFilename:
			dbFilename = args[i+1]
			i++
		}
	}

	return NewRuntime(dir, dbFilename)
}

// StripUnknownFlags drops every argument that is not a known flag, so that
// a strict flag parser sees only what it understands. known maps a flag
// name (without dashes) to whether the flag takes a value.
//
// Both `--name value` and `--name=value` forms are kept. Positional
// arguments and unknown flags are dropped one token at a time; a value
// flag at the end of args with nothing after it is dropped too.
func StripUnknownFlags(args []string, known map[string]bool) []string {
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
			continue
		}

		name := strings.TrimLeft(arg, "-")
		inline := false
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
			inline = true
		}

		takesValue, ok := known[name]
		if !ok {
			continue
		}

		if !takesValue || inline {
			out = append(out, arg)
			continue
		}
		if i+1 >= len(args) {
			break
		}
		out = append(out, arg, args[i+1])
		i++
	}

	return out
}
