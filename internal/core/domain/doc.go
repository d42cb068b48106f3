// Package domain defines the core value types of respkv.
//
// Domain types are plain values without IO dependencies:
//
//   - KeyRecord: a key, its opaque value and optional absolute expiry
//
// Keys and values are binary-safe. A key is a Go string used as an
// immutable byte sequence; no encoding is assumed.
package domain
