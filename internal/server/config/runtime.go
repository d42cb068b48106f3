package config

import "strings"

// Runtime setting names.
const (
	SettingDir        = "dir"
	SettingDBFilename = "dbfilename"
)

// Runtime is the closed set of named settings clients may query with
// CONFIG GET. It is populated once at startup and never modified.
type Runtime struct {
	names    []string
	settings map[string]string
}

// NewRuntime creates the runtime settings. Empty arguments fall back to
// DefaultDir and DefaultDBFilename.
func NewRuntime(dir, dbFilename string) *Runtime {
	if dir == "" {
		dir = DefaultDir
	}
	if dbFilename == "" {
		dbFilename = DefaultDBFilename
	}

	return &Runtime{
		names: []string{SettingDir, SettingDBFilename},
		settings: map[string]string{
			SettingDir:        dir,
			SettingDBFilename: dbFilename,
		},
	}
}

// Get looks up a setting by name, ignoring case. It returns the canonical
// setting name and the value exactly as stored.
func (r *Runtime) Get(name string) (canonical, value string, ok bool) {
	canonical = strings.ToLower(name)
	value, ok = r.settings[canonical]
	if !ok {
		return "", "", false
	}
	return canonical, value, true
}

// Names returns the setting names in a stable order.
func (r *Runtime) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
