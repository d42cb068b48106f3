// Package memory provides the in-memory keyspace of respkv.
//
// The keyspace is two coupled maps keyed identically: key -> value and
// key -> absolute expiry (Unix milliseconds). A key without an expiry entry
// lives forever.
//
// Expiry:
//
// Expiry is lazy. There is no background sweep; a key whose deadline has
// passed is purged by the next Read that touches it. An expired key that is
// never read again keeps occupying memory.
//
// Thread Safety:
//
// A Keyspace is owned by a single goroutine (the server loop) and is not
// safe for concurrent use. Only Stats may be called from other goroutines.
package memory
