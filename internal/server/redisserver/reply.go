package redisserver

import "fmt"

// Reply is a command result that knows its wire encoding.
type Reply interface {
	AppendRESP(dst []byte) []byte
}

// SimpleString is a `+` reply.
type SimpleString string

// Error is a `-` reply. The text includes the error prefix, e.g. "ERR ...".
type Error string

// Integer is a `:` reply.
type Integer int64

// BulkString is a `$` reply. It is never null; use NullBulkString.
type BulkString []byte

// Array is an array of bulk strings.
type Array [][]byte

type nullBulkString struct{}

// NullBulkString is the `$-1` reply.
var NullBulkString Reply = nullBulkString{}

// Common replies.
var (
	replyOK   = SimpleString("OK")
	replyPong = SimpleString("PONG")

	errUnknownCommand = Error("ERR unknown command")
	errSyntax         = Error("ERR syntax error")
	errPXNotInteger   = Error("ERR PX value is not an integer")
	errInvalidExpire  = Error("ERR invalid expire time in 'set' command")
	errRateLimited    = Error("ERR rate limit exceeded")
)

func (s SimpleString) AppendRESP(dst []byte) []byte { return AppendSimpleString(dst, string(s)) }
func (e Error) AppendRESP(dst []byte) []byte        { return AppendError(dst, string(e)) }
func (n Integer) AppendRESP(dst []byte) []byte      { return AppendInteger(dst, int64(n)) }
func (b BulkString) AppendRESP(dst []byte) []byte   { return appendBulk(dst, b) }
func (a Array) AppendRESP(dst []byte) []byte        { return AppendArray(dst, a) }
func (nullBulkString) AppendRESP(dst []byte) []byte { return AppendNullBulkString(dst) }

// Error implements the error interface so command errors can be logged.
func (e Error) Error() string { return string(e) }

// wrongArity is the reply for an argument count a command does not accept.
func wrongArity(name string) Error {
	return Error(fmt.Sprintf("ERR wrong number of arguments for '%s' command", name))
}
