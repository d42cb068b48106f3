// Package repl provides the interactive mode of respkv-cli.
//
// Lines are split into arguments with redis-cli quoting rules (see
// SplitArgs) and handed to an Executor. History is kept in memory and
// persisted to a file between sessions.
package repl
