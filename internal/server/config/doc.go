// Package config provides server configuration for respkv.
//
// ServerConfig holds listener, metrics and logging settings. It is loaded
// via internal/infra/confloader from defaults, a YAML file, RESPKV_*
// environment variables and command-line flags, and checked by Verify.
//
// Runtime is the read-only set of settings clients query with CONFIG GET.
// It is built once by ParseArgs from `--name value` startup arguments and
// is never read from the file or the environment.
package config
