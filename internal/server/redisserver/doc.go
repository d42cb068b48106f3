// Package redisserver provides the RESP protocol server of respkv.
//
// The package has three layers:
//
//   - Wire codec (resp.go, reply.go, client.go): decodes request frames
//     from a byte buffer, reporting ErrIncomplete for partial frames, and
//     encodes simple strings, errors, bulk strings and arrays.
//   - Command table (command.go): PING, ECHO, SET, GET and CONFIG GET.
//   - Multiplexer (server.go, loop.go): one loop goroutine owns the
//     keyspace, the runtime settings and every client buffer. Accepting
//     and reading happen in small pumps that hand one event at a time to
//     the loop and wait to be re-armed, so the loop is the only code that
//     touches shared state and needs no locks.
//
// Commands from one connection are answered in arrival order. Pipelined
// frames delivered in a single read are all answered, in one write.
package redisserver
