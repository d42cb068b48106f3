// Package main provides the entry point for respkv-server.
//
// respkv-server is an in-memory key-value server speaking the RESP
// protocol. It answers PING, ECHO, SET (with PX), GET and CONFIG GET.
//
// Usage:
//
//	respkv-server [--dir DIR] [--dbfilename NAME] [--addr HOST:PORT]
//	respkv-server --config /etc/respkv/respkv.yaml
//
// Unrecognized arguments are ignored. --dir and --dbfilename are taken
// only from the command line; the configuration file and RESPKV_*
// environment variables cannot change them.
package main
