// Package main provides the entry point for respkv-cli.
//
// Usage:
//
//	respkv-cli [--server HOST:PORT] [--output text|raw|json|yaml] [command [arguments...]]
//
// Without a command, respkv-cli starts an interactive prompt.
package main
