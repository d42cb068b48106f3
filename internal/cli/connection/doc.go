// Package connection provides the respkv-cli network client.
//
// A Client holds one TCP connection to a respkv server, sends commands as
// RESP arrays of bulk strings and reads back one reply per command.
package connection
